// Package report reduces per-recipient delivery outcomes into run statistics,
// persists them and notifies the administrator.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"herald/internal/campaign"
	"herald/internal/transport"
	"herald/pkg/logx"
)

// Store is the bounded run-report history consumed by the aggregator.
type Store interface {
	AppendReport(ctx context.Context, r campaign.Report) error
}

type Config struct {
	// AdminID is the chat that receives the summary notice and the
	// reached-recipients document.
	AdminID int64

	// AttachReached controls the supplementary JSON document upload.
	AttachReached bool
}

type Service struct {
	cfg     Config
	store   Store
	adapter transport.Adapter
	log     logx.Logger

	clock func() time.Time
}

func New(cfg Config, store Store, adapter transport.Adapter, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, store: store, adapter: adapter, log: log, clock: time.Now}
}

// Aggregate reduces a run's outcomes into a report timestamped at.
// Pure; percentages never divide by zero.
func Aggregate(messageID string, outcomes []campaign.Outcome, at time.Time) campaign.Report {
	rep := campaign.Report{MessageID: messageID, At: at, Total: len(outcomes)}

	for _, o := range outcomes {
		if !o.Success {
			continue
		}
		rep.Success++
		switch o.Language {
		case campaign.LangItalian:
			rep.ItalianReached++
		case campaign.LangSpanish:
			rep.SpanishReached++
		default:
			rep.OtherReached++
		}
	}
	rep.Failed = rep.Total - rep.Success

	if rep.Total > 0 {
		rep.SuccessPct = float64(rep.Success) / float64(rep.Total) * 100
	}
	if rep.Success > 0 {
		rep.ItalianPct = float64(rep.ItalianReached) / float64(rep.Success) * 100
		rep.SpanishPct = float64(rep.SpanishReached) / float64(rep.Success) * 100
		rep.OtherPct = float64(rep.OtherReached) / float64(rep.Success) * 100
	}
	return rep
}

// Run aggregates, persists and announces one finished broadcast.
//
// Persistence, the admin notice and the reached-recipients document are
// three independent best-effort operations; none of their failures discards
// the computed report or fails the run.
func (s *Service) Run(ctx context.Context, messageID string, outcomes []campaign.Outcome) campaign.Report {
	rep := Aggregate(messageID, outcomes, s.clock())

	if s.store != nil {
		if err := s.store.AppendReport(ctx, rep); err != nil {
			s.log.Error("report persist failed", logx.String("message", messageID), logx.Err(err))
		}
	}

	if err := s.notifyAdmin(ctx, rep); err != nil {
		s.log.Warn("admin report notice failed", logx.String("message", messageID), logx.Err(err))
	}

	if s.cfg.AttachReached {
		if err := s.sendReached(ctx, rep, outcomes); err != nil {
			s.log.Warn("reached-recipients document failed", logx.String("message", messageID), logx.Err(err))
		}
	}

	return rep
}

func (s *Service) notifyAdmin(ctx context.Context, rep campaign.Report) error {
	if s.adapter == nil || s.cfg.AdminID == 0 {
		return nil
	}
	_, err := s.adapter.SendText(ctx, transport.Target{ChatID: s.cfg.AdminID}, formatNotice(rep), &transport.SendOptions{
		ParseMode: transport.ModeHTML,
	})
	return err
}

// reachedRecipient is the sanitized per-recipient entry of the JSON artifact.
type reachedRecipient struct {
	ID       int64             `json:"id"`
	Username string            `json:"username,omitempty"`
	Language campaign.Language `json:"language"`
}

func (s *Service) sendReached(ctx context.Context, rep campaign.Report, outcomes []campaign.Outcome) error {
	if s.adapter == nil || s.cfg.AdminID == 0 {
		return nil
	}

	reached := make([]reachedRecipient, 0, rep.Success)
	for _, o := range outcomes {
		if o.Success {
			reached = append(reached, reachedRecipient{ID: o.RecipientID, Username: o.Username, Language: o.Language})
		}
	}

	payload, err := json.MarshalIndent(reached, "", "  ")
	if err != nil {
		return err
	}

	name := fmt.Sprintf("reached_users_%s_%d.json", rep.MessageID, rep.At.Unix())
	caption := fmt.Sprintf("Users reached for message %s", rep.MessageID)
	return s.adapter.SendDocument(ctx, transport.Target{ChatID: s.cfg.AdminID}, payload, name, caption)
}
