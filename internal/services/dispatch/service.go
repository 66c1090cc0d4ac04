// Package dispatch delivers one message definition to one recipient and
// reports a structured outcome.
package dispatch

import (
	"context"
	"time"

	"herald/internal/campaign"
	"herald/internal/retention"
	"herald/internal/transport"
	"herald/pkg/logx"
)

// buttonsCarrier is the minimal text of the trailing buttons-only message;
// Telegram albums cannot carry an inline keyboard themselves.
const buttonsCarrier = "."

// deleteTimeout bounds one expiry sweep against a stuck transport.
const deleteTimeout = time.Minute

type Service struct {
	adapter transport.Adapter
	sched   retention.Scheduler
	log     logx.Logger
}

func New(adapter transport.Adapter, sched retention.Scheduler, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{adapter: adapter, sched: sched, log: log}
}

// Send resolves the localized payload for one recipient and delivers it.
//
// Media messages go out as a single album with the text as the caption of
// the first item; a non-empty button set then follows as a separate minimal
// message. Text-only messages carry the buttons directly. Exactly one
// attempt is made; failures come back in the outcome, never as an error.
func (s *Service) Send(ctx context.Context, rec campaign.Recipient, msg *campaign.Message, lang campaign.Language) campaign.Outcome {
	out := campaign.Outcome{
		RecipientID: rec.ID,
		Username:    rec.Username,
		Language:    lang,
	}

	p := msg.Localize(lang)
	to := transport.Target{ChatID: rec.ID}

	var refs []transport.MessageRef
	if len(p.Media) > 0 {
		items := append([]transport.MediaItem(nil), p.Media...)
		items[0].Caption = p.Text

		sent, err := s.adapter.SendAlbum(ctx, to, items, &transport.SendOptions{
			ParseMode: transport.ModeHTML,
			Protect:   msg.Protect,
		})
		if err != nil {
			out.Error = err.Error()
			return out
		}
		refs = sent

		if len(p.Buttons) > 0 {
			ref, err := s.adapter.SendText(ctx, to, buttonsCarrier, &transport.SendOptions{
				Protect: msg.Protect,
				Buttons: p.Buttons,
			})
			if err != nil {
				// The album was delivered; losing the trailing buttons does
				// not fail the outcome.
				s.log.Warn("buttons message failed after album",
					logx.String("message", msg.ID),
					logx.Int64("recipient", rec.ID),
					logx.Err(err))
			} else {
				refs = append(refs, ref)
			}
		}
	} else {
		ref, err := s.adapter.SendText(ctx, to, p.Text, &transport.SendOptions{
			ParseMode: transport.ModeHTML,
			Protect:   msg.Protect,
			Buttons:   p.Buttons,
		})
		if err != nil {
			out.Error = err.Error()
			return out
		}
		refs = []transport.MessageRef{ref}
	}

	out.Success = true
	for _, r := range refs {
		out.MessageIDs = append(out.MessageIDs, r.MessageID)
	}

	s.scheduleExpiry(msg, refs)
	return out
}

// scheduleExpiry arms the deferred deletion of everything just delivered.
// Best-effort: deletion failures are logged, never surfaced to the run.
func (s *Service) scheduleExpiry(msg *campaign.Message, refs []transport.MessageRef) {
	if msg.LifeHours <= 0 || len(refs) == 0 || s.sched == nil {
		return
	}

	delay := time.Duration(msg.LifeHours) * time.Hour
	pinned := append([]transport.MessageRef(nil), refs...)
	messageID := msg.ID

	s.sched.ScheduleOnce(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
		defer cancel()
		for _, ref := range pinned {
			if err := s.adapter.DeleteMessage(ctx, ref); err != nil {
				s.log.Warn("expired message delete failed",
					logx.String("message", messageID),
					logx.Int64("chat_id", ref.ChatID),
					logx.Int("message_id", ref.MessageID),
					logx.Err(err))
			}
		}
	})
}
