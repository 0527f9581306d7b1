package bot

import (
	"strings"

	"github.com/originalcoast/igbot/internal/igapi"
)

// Kind identifies the shape of an inbound messaging event.
type Kind int

// Event kinds in classification priority order.
const (
	KindUnknown Kind = iota
	KindEcho
	KindQuickReply
	KindAttachment
	KindText
	KindPostback
	KindReferral
)

func (k Kind) String() string {
	switch k {
	case KindEcho:
		return "echo"
	case KindQuickReply:
		return "quick_reply"
	case KindAttachment:
		return "attachment"
	case KindText:
		return "text"
	case KindPostback:
		return "postback"
	case KindReferral:
		return "referral"
	default:
		return "unknown"
	}
}

// Event is a classified messaging event.
type Event struct {
	Kind     Kind
	SenderID string

	// Text is set for KindText.
	Text string

	// Token is the payload token for quick replies, postbacks and referrals.
	Token string

	// Attachments is set for KindAttachment.
	Attachments []igapi.InboundAttachment
}

// Classify derives an Event from a raw messaging item.
// A message takes precedence over a postback, which takes precedence over a referral.
func Classify(m igapi.Messaging) Event {
	ev := Event{SenderID: m.Sender.ID}

	switch {
	case m.Message != nil:
		msg := m.Message
		switch {
		case msg.IsEcho:
			ev.Kind = KindEcho
		case msg.QuickReply != nil:
			ev.Kind = KindQuickReply
			ev.Token = msg.QuickReply.Payload
		case len(msg.Attachments) > 0:
			ev.Kind = KindAttachment
			ev.Attachments = msg.Attachments
		case msg.Text != "":
			ev.Kind = KindText
			ev.Text = msg.Text
		}

	case m.Postback != nil:
		ev.Kind = KindPostback
		payload := m.Postback.Payload
		if ref := m.Postback.Referral; ref != nil && ref.Type == igapi.ReferralOpenThread {
			payload = ref.Ref
		}
		ev.Token = strings.ToUpper(payload)

	case m.Referral != nil:
		ev.Kind = KindReferral
		ev.Token = strings.ToUpper(m.Referral.Ref)
	}

	return ev
}
