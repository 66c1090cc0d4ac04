package trigger

import (
	"context"
	"errors"
	"testing"
	"time"

	"herald/internal/campaign"
	"herald/internal/schedule"
	"herald/pkg/logx"
)

type staticMessages []*campaign.Message

func (m staticMessages) Messages() []*campaign.Message { return m }

type countingBroadcaster struct {
	sent []string
	err  error
}

func (b *countingBroadcaster) Broadcast(_ context.Context, msg *campaign.Message) (campaign.Report, error) {
	if b.err != nil {
		return campaign.Report{}, b.err
	}
	b.sent = append(b.sent, msg.ID)
	return campaign.Report{MessageID: msg.ID, Total: 1, Success: 1, SuccessPct: 100}, nil
}

func msgWithSchedule(id string, tokens ...string) *campaign.Message {
	return &campaign.Message{ID: id, Schedule: tokens, Rules: schedule.Parse(tokens)}
}

func newTestService(t *testing.T, msgs Messages, bc Broadcaster) *Service {
	t.Helper()
	svc, err := New(Config{Timezone: "Europe/Madrid", DailyTime: "15:00"}, msgs, bc, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

func TestRunOnceSendsOnlyDueMessages(t *testing.T) {
	t.Parallel()
	msgs := staticMessages{
		msgWithSchedule("sunday-only", "SUNDAY"),
		msgWithSchedule("friday-only", "FRIDAY"),
		msgWithSchedule("never"),
	}
	bc := &countingBroadcaster{}
	svc := newTestService(t, msgs, bc)

	// 2025-09-07 is a Sunday in Europe/Madrid.
	now := time.Date(2025, 9, 7, 15, 0, 0, 0, svc.Location())
	results := svc.RunOnce(context.Background(), now)

	if len(results) != 3 {
		t.Fatalf("results = %d, want one per message", len(results))
	}
	if len(bc.sent) != 1 || bc.sent[0] != "sunday-only" {
		t.Fatalf("sent = %v, want only sunday-only", bc.sent)
	}

	byID := map[string]Result{}
	for _, r := range results {
		byID[r.MessageID] = r
		if r.RunID == "" {
			t.Fatal("every result carries the run id")
		}
	}
	if !byID["sunday-only"].Sent || byID["friday-only"].Sent || byID["never"].Sent {
		t.Fatalf("sent flags: %+v", results)
	}
}

func TestRunOnceEvaluatesInFixedTimezone(t *testing.T) {
	t.Parallel()
	bc := &countingBroadcaster{}
	svc := newTestService(t, staticMessages{msgWithSchedule("m", "SUNDAY")}, bc)

	// 23:30 UTC on Saturday 2025-09-06 is already Sunday in Madrid (CEST).
	now := time.Date(2025, 9, 6, 23, 30, 0, 0, time.UTC)
	svc.RunOnce(context.Background(), now)

	if len(bc.sent) != 1 {
		t.Fatalf("expected the Madrid-local Sunday to match, sent = %v", bc.sent)
	}
}

func TestRunOnceRecordsBroadcastErrors(t *testing.T) {
	t.Parallel()
	bc := &countingBroadcaster{err: errors.New("directory offline")}
	svc := newTestService(t, staticMessages{msgWithSchedule("m", "SUNDAY")}, bc)

	now := time.Date(2025, 9, 7, 15, 0, 0, 0, svc.Location())
	results := svc.RunOnce(context.Background(), now)

	if len(results) != 1 {
		t.Fatalf("results = %d", len(results))
	}
	if results[0].Sent || results[0].Err == "" {
		t.Fatalf("error not recorded: %+v", results[0])
	}
}

func TestNewRejectsBadDailyTime(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{DailyTime: "25:00"}, staticMessages{}, &countingBroadcaster{}, logx.Nop()); err == nil {
		t.Fatal("expected error for hour 25")
	}
	if _, err := New(Config{DailyTime: "nope"}, staticMessages{}, &countingBroadcaster{}, logx.Nop()); err == nil {
		t.Fatal("expected error for junk input")
	}
	if _, err := New(Config{Timezone: "Mars/Olympus"}, staticMessages{}, &countingBroadcaster{}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}
