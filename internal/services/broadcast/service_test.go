package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"herald/internal/campaign"
	"herald/pkg/logx"
)

type scriptedSender struct {
	mu    sync.Mutex
	sent  []int64
	errBy map[int64]string // recipient id -> error description, "" means success
}

func (f *scriptedSender) Send(_ context.Context, rec campaign.Recipient, _ *campaign.Message, lang campaign.Language) campaign.Outcome {
	f.mu.Lock()
	f.sent = append(f.sent, rec.ID)
	f.mu.Unlock()

	out := campaign.Outcome{RecipientID: rec.ID, Username: rec.Username, Language: lang}
	if desc, ok := f.errBy[rec.ID]; ok && desc != "" {
		out.Error = desc
		return out
	}
	out.Success = true
	return out
}

type fakeDirectory struct {
	mu        sync.Mutex
	listErr   error
	removeErr error
	all       []campaign.Recipient
	removed   []int64
}

func (d *fakeDirectory) ListRecipients(context.Context) ([]campaign.Recipient, error) {
	if d.listErr != nil {
		return nil, d.listErr
	}
	return d.all, nil
}

func (d *fakeDirectory) RemoveRecipient(_ context.Context, id int64) error {
	d.mu.Lock()
	d.removed = append(d.removed, id)
	d.mu.Unlock()
	return d.removeErr
}

type passthroughReporter struct {
	mu       sync.Mutex
	outcomes []campaign.Outcome
}

func (r *passthroughReporter) Run(_ context.Context, messageID string, outcomes []campaign.Outcome) campaign.Report {
	r.mu.Lock()
	r.outcomes = outcomes
	r.mu.Unlock()

	rep := campaign.Report{MessageID: messageID, At: time.Now(), Total: len(outcomes)}
	for _, o := range outcomes {
		if o.Success {
			rep.Success++
		}
	}
	rep.Failed = rep.Total - rep.Success
	return rep
}

func recipients(ids ...int64) []campaign.Recipient {
	out := make([]campaign.Recipient, 0, len(ids))
	for _, id := range ids {
		out = append(out, campaign.Recipient{ID: id, LanguageCode: "en"})
	}
	return out
}

func TestBroadcastCountsEveryRecipientOnce(t *testing.T) {
	t.Parallel()
	dir := &fakeDirectory{all: recipients(1, 2, 3, 4, 5)}
	sender := &scriptedSender{errBy: map[int64]string{3: "Bad Request: chat not found"}}
	rep := &passthroughReporter{}
	svc := New(Config{Workers: 3, RatePerSec: 1000}, sender, dir, rep, logx.Nop())

	got, err := svc.Broadcast(context.Background(), &campaign.Message{ID: "message1"})
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	if got.Total != 5 || got.Success != 4 || got.Failed != 1 {
		t.Fatalf("report: %+v", got)
	}
	if got.Success+got.Failed != got.Total {
		t.Fatalf("invariant broken: %+v", got)
	}
	if len(sender.sent) != 5 {
		t.Fatalf("sends = %v, want one per recipient", sender.sent)
	}
	seen := map[int64]int{}
	for _, id := range sender.sent {
		seen[id]++
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("recipient %d attempted %d times", id, n)
		}
	}
}

func TestBroadcastPrunesBlockedRecipients(t *testing.T) {
	t.Parallel()
	dir := &fakeDirectory{all: recipients(10, 11, 12)}
	sender := &scriptedSender{errBy: map[int64]string{
		11: "Forbidden: bot was blocked by the user",
		12: "Bad Request: chat not found",
	}}
	rep := &passthroughReporter{}
	svc := New(Config{Workers: 1, RatePerSec: 1000}, sender, dir, rep, logx.Nop())

	got, err := svc.Broadcast(context.Background(), &campaign.Message{ID: "message1"})
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	// Exactly one removal, only for the blocked recipient.
	if len(dir.removed) != 1 || dir.removed[0] != 11 {
		t.Fatalf("removed = %v, want [11]", dir.removed)
	}
	// The blocked outcome is still part of the report.
	if got.Total != 3 || got.Failed != 2 {
		t.Fatalf("report: %+v", got)
	}
	if len(rep.outcomes) != 3 {
		t.Fatalf("reporter got %d outcomes", len(rep.outcomes))
	}
}

func TestBroadcastPruneFailureIsSwallowed(t *testing.T) {
	t.Parallel()
	dir := &fakeDirectory{
		all:       recipients(20),
		removeErr: errors.New("store offline"),
	}
	sender := &scriptedSender{errBy: map[int64]string{20: "Forbidden: bot was blocked by the user"}}
	svc := New(Config{Workers: 1, RatePerSec: 1000}, sender, dir, &passthroughReporter{}, logx.Nop())

	got, err := svc.Broadcast(context.Background(), &campaign.Message{ID: "message1"})
	if err != nil {
		t.Fatalf("prune failure must not fail the run: %v", err)
	}
	if got.Total != 1 || got.Failed != 1 {
		t.Fatalf("report: %+v", got)
	}
}

func TestBroadcastDirectoryErrorPropagates(t *testing.T) {
	t.Parallel()
	dir := &fakeDirectory{listErr: errors.New("db locked")}
	svc := New(Config{}, &scriptedSender{}, dir, &passthroughReporter{}, logx.Nop())

	if _, err := svc.Broadcast(context.Background(), &campaign.Message{ID: "message1"}); err == nil {
		t.Fatal("expected configuration-level error")
	}
}

func TestBroadcastCancelYieldsPartialRun(t *testing.T) {
	t.Parallel()
	dir := &fakeDirectory{all: recipients(1, 2, 3, 4, 5, 6, 7, 8)}
	sender := &scriptedSender{}
	rep := &passthroughReporter{}
	svc := New(Config{Workers: 1, RatePerSec: 1000}, sender, dir, rep, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := svc.Broadcast(ctx, &campaign.Message{ID: "message1"})
	if err != nil {
		t.Fatalf("interrupted run must still produce a report: %v", err)
	}
	if got.Total > len(dir.all) {
		t.Fatalf("report covers more outcomes than recipients: %+v", got)
	}
}
