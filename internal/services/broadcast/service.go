// Package broadcast fans one message definition out to every recipient,
// prunes permanently unreachable recipients and hands the collected outcomes
// to the report aggregator.
package broadcast

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"herald/internal/campaign"
	"herald/internal/transport"
	"herald/pkg/logx"
)

type Config struct {
	Workers    int // concurrent per-recipient dispatches; default 4
	RatePerSec int // transport send budget; default 10
}

// Sender delivers one message to one recipient. Implemented by the
// dispatch service.
type Sender interface {
	Send(ctx context.Context, rec campaign.Recipient, msg *campaign.Message, lang campaign.Language) campaign.Outcome
}

// Directory supplies the recipient set and supports pruning.
// RemoveRecipient must be idempotent.
type Directory interface {
	ListRecipients(ctx context.Context) ([]campaign.Recipient, error)
	RemoveRecipient(ctx context.Context, id int64) error
}

// Reporter turns a run's outcomes into the persisted, announced report.
type Reporter interface {
	Run(ctx context.Context, messageID string, outcomes []campaign.Outcome) campaign.Report
}

type Service struct {
	cfg      Config
	sender   Sender
	dir      Directory
	reporter Reporter
	log      logx.Logger

	limiter *rate.Limiter
}

func New(cfg Config, sender Sender, dir Directory, reporter Reporter, log logx.Logger) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 10
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:      cfg,
		sender:   sender,
		dir:      dir,
		reporter: reporter,
		log:      log,
		limiter:  rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// Broadcast sends msg to every known recipient exactly once and returns the
// aggregated report. Per-recipient failures never propagate; the only error
// case is failing to obtain the recipient set in the first place.
func (s *Service) Broadcast(ctx context.Context, msg *campaign.Message) (campaign.Report, error) {
	start := time.Now()

	recipients, err := s.dir.ListRecipients(ctx)
	if err != nil {
		return campaign.Report{}, fmt.Errorf("list recipients: %w", err)
	}

	s.log.Info("broadcast started",
		logx.String("message", msg.ID),
		logx.Int("recipients", len(recipients)))

	outcomes := s.fanOut(ctx, msg, recipients)
	rep := s.reporter.Run(ctx, msg.ID, outcomes)

	fields := []logx.Field{
		logx.String("message", msg.ID),
		logx.Int("total", rep.Total),
		logx.Int("failed", rep.Failed),
		logx.Duration("dur", time.Since(start)),
	}
	if rep.Failed > 0 {
		s.log.Warn("broadcast finished with failures", fields...)
	} else {
		s.log.Info("broadcast finished", fields...)
	}
	return rep, nil
}

// fanOut dispatches to all recipients with bounded concurrency. Outcome
// order is unspecified. A cancelled context stops enqueuing further
// recipients; everything already dispatched still lands in the result,
// yielding a partial run.
func (s *Service) fanOut(ctx context.Context, msg *campaign.Message, recipients []campaign.Recipient) []campaign.Outcome {
	workers := s.cfg.Workers
	if workers > len(recipients) {
		workers = len(recipients)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan campaign.Recipient)

	var mu sync.Mutex
	outcomes := make([]campaign.Outcome, 0, len(recipients))

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("panic in broadcast worker",
						logx.Any("panic", r),
						logx.String("stack", string(debug.Stack())))
				}
			}()
			for rec := range jobs {
				out := s.sendOne(ctx, msg, rec)
				mu.Lock()
				outcomes = append(outcomes, out)
				mu.Unlock()
			}
		}()
	}

	for _, rec := range recipients {
		select {
		case jobs <- rec:
		case <-ctx.Done():
			// Partial run: whatever was dispatched so far still reports.
			s.log.Warn("broadcast interrupted", logx.String("message", msg.ID), logx.Err(ctx.Err()))
			close(jobs)
			wg.Wait()
			return outcomes
		}
	}
	close(jobs)
	wg.Wait()
	return outcomes
}

func (s *Service) sendOne(ctx context.Context, msg *campaign.Message, rec campaign.Recipient) campaign.Outcome {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return campaign.Outcome{
				RecipientID: rec.ID,
				Username:    rec.Username,
				Language:    rec.Language(),
				Error:       err.Error(),
			}
		}
	}

	out := s.sender.Send(ctx, rec, msg, rec.Language())

	if !out.Success && transport.IsPermanentlyUnreachable(out.Error) {
		s.prune(ctx, msg.ID, rec)
	}
	return out
}

// prune removes a recipient that blocked the bot. Best-effort: a failed
// removal is logged and never retried within the run.
func (s *Service) prune(ctx context.Context, messageID string, rec campaign.Recipient) {
	if err := s.dir.RemoveRecipient(ctx, rec.ID); err != nil {
		s.log.Warn("recipient prune failed",
			logx.String("message", messageID),
			logx.Int64("recipient", rec.ID),
			logx.Err(err))
		return
	}
	s.log.Info("recipient pruned (blocked the bot)",
		logx.String("message", messageID),
		logx.Int64("recipient", rec.ID))
}
