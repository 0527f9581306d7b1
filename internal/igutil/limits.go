package igutil

// Instagram Send API limits (rune counts).
// References: https://developers.facebook.com/docs/messenger-platform/instagram/features/send-message
//
// Builders do not truncate; CheckLimits reports violations so callers can log them.
const (
	MaxTextMessageLength = 1000 // Text message body

	// Quick Reply Limits
	MaxQuickReplyItemCount = 13 // Max items in a quick reply
	MaxQuickReplyTitle     = 20 // Max title length for a quick reply item

	// Generic Template Limits
	MaxTemplateTitleLength    = 80 // Element title
	MaxTemplateSubtitleLength = 80 // Element subtitle
	MaxTemplateButtonCount    = 3  // Buttons per element
	MaxButtonTitleLength      = 20 // Button title

	// Payloads
	MaxPostbackPayload = 1000 // Postback and quick reply payload
)
