// Package trigger owns the once-daily run: it asks the recurrence rules
// which messages are due and hands each due message to the broadcaster.
package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"herald/internal/campaign"
	"herald/internal/schedule"
	"herald/pkg/logx"
)

const (
	DefaultTimezone  = "Europe/Madrid"
	DefaultDailyTime = "15:00"

	// runTimeout bounds one whole scheduled run.
	runTimeout = 30 * time.Minute
)

type Config struct {
	Timezone  string // IANA name of the fixed civil timezone
	DailyTime string // "HH:MM", 24-hour, in Timezone
}

// Broadcaster runs the fan-out for one due message.
type Broadcaster interface {
	Broadcast(ctx context.Context, msg *campaign.Message) (campaign.Report, error)
}

// Messages yields the current message definitions.
type Messages interface {
	Messages() []*campaign.Message
}

// Result is the per-message outcome of one run.
type Result struct {
	RunID     string `json:"runId"`
	MessageID string `json:"messageId"`
	Sent      bool   `json:"sent"`
	Err       string `json:"error,omitempty"`
}

type Service struct {
	cfg  Config
	loc  *time.Location
	cron *cron.Cron
	msgs Messages
	bc   Broadcaster
	log  logx.Logger
}

func New(cfg Config, msgs Messages, bc Broadcaster, log logx.Logger) (*Service, error) {
	tz := cfg.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}

	daily := cfg.DailyTime
	if daily == "" {
		daily = DefaultDailyTime
	}
	hh, mm, err := parseHHMM(daily)
	if err != nil {
		return nil, err
	}

	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		cfg:  cfg,
		loc:  loc,
		cron: cron.New(cron.WithLocation(loc)),
		msgs: msgs,
		bc:   bc,
		log:  log,
	}

	spec := fmt.Sprintf("%d %d * * *", mm, hh)
	if _, err := s.cron.AddFunc(spec, s.runScheduled); err != nil {
		return nil, fmt.Errorf("schedule daily run: %w", err)
	}
	return s, nil
}

// Location is the fixed civil timezone every recurrence check runs in.
func (s *Service) Location() *time.Location { return s.loc }

func (s *Service) Start() {
	s.cron.Start()
	s.log.Info("daily trigger started",
		logx.String("tz", s.loc.String()),
		logx.String("at", s.dailyTime()))
}

func (s *Service) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("trigger stop timed out with a run still in flight")
	}
}

func (s *Service) dailyTime() string {
	if s.cfg.DailyTime == "" {
		return DefaultDailyTime
	}
	return s.cfg.DailyTime
}

func (s *Service) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	s.RunOnce(ctx, time.Now())
}

// RunOnce evaluates every message definition against the civil date of now
// and broadcasts the due ones sequentially. It returns one Result per
// message; broadcast errors are recorded, not returned.
func (s *Service) RunOnce(ctx context.Context, now time.Time) []Result {
	now = now.In(s.loc)
	runID := uuid.NewString()

	msgs := s.msgs.Messages()
	s.log.Info("run started",
		logx.String("run", runID),
		logx.Time("now", now),
		logx.Int("messages", len(msgs)))

	results := make([]Result, 0, len(msgs))
	for _, msg := range msgs {
		res := Result{RunID: runID, MessageID: msg.ID}

		if !schedule.DueToday(msg.Rules, now) {
			results = append(results, res)
			continue
		}

		rep, err := s.bc.Broadcast(ctx, msg)
		if err != nil {
			res.Err = err.Error()
			s.log.Error("broadcast failed",
				logx.String("run", runID),
				logx.String("message", msg.ID),
				logx.Err(err))
			results = append(results, res)
			continue
		}

		res.Sent = true
		s.log.Info("message sent",
			logx.String("run", runID),
			logx.String("message", msg.ID),
			logx.Int("total", rep.Total),
			logx.Int("failed", rep.Failed),
			logx.Float64("success_pct", rep.SuccessPct))
		results = append(results, res)
	}

	s.log.Info("run finished", logx.String("run", runID), logx.Int("messages", len(results)))
	return results
}

func parseHHMM(v string) (int, int, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(v, "%d:%d", &hh, &mm); err != nil {
		return 0, 0, fmt.Errorf("invalid daily time %q (use HH:MM)", v)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, 0, fmt.Errorf("invalid daily time %q (use HH:MM)", v)
	}
	return hh, mm, nil
}
