package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"herald/internal/campaign"
	"herald/pkg/logx"
)

func openTestStore(t *testing.T, historyMax int) Store {
	t.Helper()
	st, err := Open(Config{
		Driver:     "sqlite",
		Path:       filepath.Join(t.TempDir(), "herald.db"),
		HistoryMax: historyMax,
	}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestRecipientRoundTrip(t *testing.T) {
	st := openTestStore(t, 0)
	ctx := context.Background()

	want := campaign.Recipient{
		ID:           42,
		Username:     "anna",
		FirstName:    "Anna",
		LanguageCode: "it-IT",
		StartedAt:    time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := st.PutRecipient(ctx, want); err != nil {
		t.Fatalf("PutRecipient: %v", err)
	}

	got, err := st.ListRecipients(ctx)
	if err != nil {
		t.Fatalf("ListRecipients: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 recipient, got %d", len(got))
	}
	if got[0].ID != want.ID || got[0].Username != want.Username || got[0].LanguageCode != want.LanguageCode {
		t.Fatalf("recipient mismatch: %+v", got[0])
	}
	if got[0].Language() != campaign.LangItalian {
		t.Fatalf("language = %s, want it", got[0].Language())
	}
}

func TestRemoveRecipientIdempotent(t *testing.T) {
	st := openTestStore(t, 0)
	ctx := context.Background()

	if err := st.PutRecipient(ctx, campaign.Recipient{ID: 7}); err != nil {
		t.Fatalf("PutRecipient: %v", err)
	}
	if err := st.RemoveRecipient(ctx, 7); err != nil {
		t.Fatalf("first RemoveRecipient: %v", err)
	}
	// Removing an already-removed id must be a no-op, not an error.
	if err := st.RemoveRecipient(ctx, 7); err != nil {
		t.Fatalf("second RemoveRecipient: %v", err)
	}
	if err := st.RemoveRecipient(ctx, 999); err != nil {
		t.Fatalf("RemoveRecipient of unknown id: %v", err)
	}

	got, err := st.ListRecipients(ctx)
	if err != nil {
		t.Fatalf("ListRecipients: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty directory, got %d", len(got))
	}
}

func TestReportHistoryBounded(t *testing.T) {
	st := openTestStore(t, 3)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		r := campaign.Report{
			MessageID: fmt.Sprintf("message%d", i),
			At:        time.Date(2025, 9, i, 15, 0, 0, 0, time.UTC),
			Total:     i,
		}
		if err := st.AppendReport(ctx, r); err != nil {
			t.Fatalf("AppendReport(%d): %v", i, err)
		}
	}

	got, err := st.RecentReports(ctx, 10)
	if err != nil {
		t.Fatalf("RecentReports: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected history capped at 3, got %d", len(got))
	}
	// Most-recent-first: 5, 4, 3.
	for i, wantID := range []string{"message5", "message4", "message3"} {
		if got[i].MessageID != wantID {
			t.Fatalf("report[%d] = %s, want %s", i, got[i].MessageID, wantID)
		}
	}
}
