// Package igutil provides constructors for Instagram Send API messages.
// Every constructor is pure: equal inputs give structurally equal messages.
package igutil

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/originalcoast/igbot/internal/igapi"
)

// QuickReplyOption is a (title, payload) pair offered under a prompt.
type QuickReplyOption struct {
	Title   string
	Payload string
}

// NewTextMessage creates a plain text message.
func NewTextMessage(text string) igapi.Message {
	return igapi.Message{Text: text}
}

// NewQuickReply creates a text prompt with tappable options, in order.
func NewQuickReply(prompt string, options []QuickReplyOption) igapi.Message {
	replies := make([]igapi.QuickReply, len(options))
	for i, opt := range options {
		replies[i] = igapi.QuickReply{
			ContentType: igapi.ContentTypeText,
			Title:       opt.Title,
			Payload:     opt.Payload,
		}
	}
	return igapi.Message{Text: prompt, QuickReplies: replies}
}

// NewImageMessage creates an image attachment message.
func NewImageMessage(url string) igapi.Message {
	return igapi.Message{
		Attachment: &igapi.Attachment{
			Type:    igapi.AttachmentImage,
			Payload: igapi.AttachmentPayload{URL: url},
		},
	}
}

// NewGenericTemplate creates a single-card generic template.
func NewGenericTemplate(imageURL, title, subtitle string, buttons []igapi.Button) igapi.Message {
	return igapi.Message{
		Attachment: &igapi.Attachment{
			Type: igapi.AttachmentTemplate,
			Payload: igapi.AttachmentPayload{
				TemplateType: igapi.TemplateGeneric,
				Elements: []igapi.Element{{
					Title:    title,
					Subtitle: subtitle,
					ImageURL: imageURL,
					Buttons:  buttons,
				}},
			},
		},
	}
}

// NewPostbackButton creates a button that posts payload back to the webhook.
func NewPostbackButton(title, payload string) igapi.Button {
	return igapi.Button{Type: igapi.ButtonPostback, Title: title, Payload: payload}
}

// NewURLButton creates a button that opens url.
func NewURLButton(title, url string) igapi.Button {
	return igapi.Button{Type: igapi.ButtonWebURL, Title: title, URL: url}
}

// WithDelay returns msg carrying an explicit send delay.
func WithDelay(msg igapi.Message, d time.Duration) igapi.Message {
	msg.Delay = &d
	return msg
}

// CheckLimits reports every platform limit msg exceeds, joined.
func CheckLimits(msg igapi.Message) error {
	var errs []error
	over := func(field, value string, limit int) {
		if n := utf8.RuneCountInString(value); n > limit {
			errs = append(errs, fmt.Errorf("%s has %d runes, limit %d", field, n, limit))
		}
	}

	over("text", msg.Text, MaxTextMessageLength)
	if len(msg.QuickReplies) > MaxQuickReplyItemCount {
		errs = append(errs, fmt.Errorf("%d quick replies, limit %d", len(msg.QuickReplies), MaxQuickReplyItemCount))
	}
	for i, qr := range msg.QuickReplies {
		over(fmt.Sprintf("quick_replies[%d].title", i), qr.Title, MaxQuickReplyTitle)
		over(fmt.Sprintf("quick_replies[%d].payload", i), qr.Payload, MaxPostbackPayload)
	}
	if msg.Attachment != nil {
		for i, el := range msg.Attachment.Payload.Elements {
			over(fmt.Sprintf("elements[%d].title", i), el.Title, MaxTemplateTitleLength)
			over(fmt.Sprintf("elements[%d].subtitle", i), el.Subtitle, MaxTemplateSubtitleLength)
			if len(el.Buttons) > MaxTemplateButtonCount {
				errs = append(errs, fmt.Errorf("elements[%d] has %d buttons, limit %d", i, len(el.Buttons), MaxTemplateButtonCount))
			}
			for j, b := range el.Buttons {
				over(fmt.Sprintf("elements[%d].buttons[%d].title", i, j), b.Title, MaxButtonTitleLength)
			}
		}
	}
	return errors.Join(errs...)
}
