package igapi

import "time"

// Attachment and button type values used by the Send API.
const (
	AttachmentImage    = "image"
	AttachmentTemplate = "template"
	TemplateGeneric    = "generic"
	ButtonWebURL       = "web_url"
	ButtonPostback     = "postback"
	ContentTypeText    = "text"
)

// Message is an outbound message body.
type Message struct {
	Text         string       `json:"text,omitempty"`
	Attachment   *Attachment  `json:"attachment,omitempty"`
	QuickReplies []QuickReply `json:"quick_replies,omitempty"`

	// Delay overrides the batch position delay when set. Never serialized.
	Delay *time.Duration `json:"-"`
}

// QuickReply is a tappable suggestion under a message.
type QuickReply struct {
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
	Payload     string `json:"payload"`
}

// Attachment is an image or template attachment.
type Attachment struct {
	Type    string            `json:"type"`
	Payload AttachmentPayload `json:"payload"`
}

// AttachmentPayload carries either a media URL or template elements.
type AttachmentPayload struct {
	URL          string    `json:"url,omitempty"`
	TemplateType string    `json:"template_type,omitempty"`
	Elements     []Element `json:"elements,omitempty"`
}

// Element is one card of a generic template.
type Element struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
	Buttons  []Button `json:"buttons,omitempty"`
}

// Button is a template or persistent-menu button.
type Button struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
	Payload string `json:"payload,omitempty"`
}

// Recipient addresses a user (ID) or a comment for a private reply (CommentID).
type Recipient struct {
	ID        string `json:"id,omitempty"`
	CommentID string `json:"comment_id,omitempty"`
}

// SendRequest is the body of POST /me/messages.
type SendRequest struct {
	Recipient Recipient `json:"recipient"`
	Message   Message   `json:"message"`
	Tag       string    `json:"tag,omitempty"`
}

// TagHumanAgent is the message tag used for private replies.
const TagHumanAgent = "HUMAN_AGENT"

// Profile is the subset of user fields the bot reads.
type Profile struct {
	Name       string `json:"name"`
	ProfilePic string `json:"profile_pic"`
}

// IceBreaker is a suggested opening question shown in a new conversation.
type IceBreaker struct {
	Question string `json:"question"`
	Payload  string `json:"payload"`
}

// PersistentMenu is the always-available conversation menu for one locale.
type PersistentMenu struct {
	Locale                string   `json:"locale"`
	ComposerInputDisabled bool     `json:"composer_input_disabled"`
	CallToActions         []Button `json:"call_to_actions"`
}
