package telegram

import (
	"github.com/gotd/td/tg"

	"github.com/pscheid92/codedrop/internal/domain"
)

// toInboundEvent converts a Telegram message. Service messages and empty messages are not events.
func toInboundEvent(m tg.MessageClass) (domain.InboundEvent, bool) {
	msg, ok := m.(*tg.Message)
	if !ok {
		return domain.InboundEvent{}, false
	}

	peer, ok := toPeerRef(msg.PeerID)
	if !ok {
		return domain.InboundEvent{}, false
	}

	ev := domain.InboundEvent{
		Peer:        peer,
		Annotations: toAnnotations(msg.Entities),
		Date:        int64(msg.Date),
	}

	// Telegram carries media captions in the message field.
	if msg.Media != nil {
		ev.Caption = msg.Message
	} else {
		ev.Text = msg.Message
	}

	return ev, true
}

func toPeerRef(p tg.PeerClass) (domain.PeerRef, bool) {
	switch p := p.(type) {
	case *tg.PeerChannel:
		return domain.PeerRef{Kind: domain.PeerChannel, ID: p.ChannelID}, true
	case *tg.PeerUser:
		return domain.PeerRef{Kind: domain.PeerUser, ID: p.UserID}, true
	case *tg.PeerChat:
		return domain.PeerRef{Kind: domain.PeerChat, ID: p.ChatID}, true
	default:
		return domain.PeerRef{}, false
	}
}

func toAnnotations(entities []tg.MessageEntityClass) []domain.Annotation {
	if len(entities) == 0 {
		return nil
	}

	out := make([]domain.Annotation, 0, len(entities))
	for _, e := range entities {
		switch e := e.(type) {
		case *tg.MessageEntityTextURL:
			out = append(out, domain.Annotation{Offset: e.Offset, Length: e.Length, Kind: domain.AnnotationTextLink, URL: e.URL})
		case *tg.MessageEntityURL:
			out = append(out, domain.Annotation{Offset: e.Offset, Length: e.Length, Kind: domain.AnnotationURL})
		default:
			out = append(out, domain.Annotation{Offset: e.GetOffset(), Length: e.GetLength(), Kind: domain.AnnotationOther})
		}
	}
	return out
}
