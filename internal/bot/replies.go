package bot

import (
	"fmt"

	"github.com/originalcoast/igbot/internal/i18n"
	"github.com/originalcoast/igbot/internal/igapi"
	"github.com/originalcoast/igbot/internal/igutil"
	"github.com/originalcoast/igbot/internal/user"
)

// Payload tokens handled by the dispatcher itself.
const (
	TokenGetStarted     = "GET_STARTED"
	TokenDevDocs        = "DEVDOCS"
	TokenGitHub         = "GITHUB"
	TokenCareHelp       = "CARE_HELP"
	TokenCuration       = "CURATION"
	TokenOrderNumber    = "ORDER_NUMBER"
	TokenCSATSuggestion = "CSAT_SUGGESTION"
)

// welcomeAliases are matched exactly.
var welcomeAliases = []string{TokenGetStarted, TokenDevDocs, TokenGitHub}

func menuOptions(tr i18n.Translator) []igutil.QuickReplyOption {
	return []igutil.QuickReplyOption{
		{Title: tr.T("menu.suggestion"), Payload: TokenCuration},
		{Title: tr.T("menu.help"), Payload: TokenCareHelp},
		{Title: tr.T("menu.start_over"), Payload: TokenGetStarted},
	}
}

// Welcome greets u by display name and offers the main menu.
func Welcome(tr i18n.Translator, u user.User) []igapi.Message {
	return []igapi.Message{
		igutil.NewQuickReply(tr.T("get_started.welcome", i18n.Args{"userName": u.DisplayName}), menuOptions(tr)),
	}
}

// TextFallback answers text that matched no rule.
func TextFallback(tr i18n.Translator, text string) []igapi.Message {
	return []igapi.Message{
		igutil.NewTextMessage(tr.T("fallback.any", i18n.Args{"message": text})),
		igutil.NewTextMessage(tr.T("get_started.guidance")),
		igutil.NewQuickReply(tr.T("get_started.help"), menuOptions(tr)),
	}
}

// AttachmentFallback answers any message carrying attachments.
func AttachmentFallback(tr i18n.Translator) []igapi.Message {
	return []igapi.Message{
		igutil.NewQuickReply(tr.T("fallback.attachment"), []igutil.QuickReplyOption{
			{Title: tr.T("menu.help"), Payload: TokenCareHelp},
			{Title: tr.T("menu.start_over"), Payload: TokenGetStarted},
		}),
	}
}

// DefaultReply acknowledges a token no handler claimed.
func DefaultReply(token string) []igapi.Message {
	return []igapi.Message{
		igutil.NewTextMessage(fmt.Sprintf("This is a default postback message for payload: %s!", token)),
	}
}

// ErrorReply reports a handler failure to the user.
func ErrorReply(reason string) []igapi.Message {
	return []igapi.Message{
		igutil.NewTextMessage(fmt.Sprintf("An error has occurred: '%s'. We have been notified and will fix the issue shortly!", reason)),
	}
}
