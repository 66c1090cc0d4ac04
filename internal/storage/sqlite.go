package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"herald/internal/campaign"
	"herald/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

const defaultHistoryMax = 100

type sqliteStore struct {
	db         *sql.DB
	log        logx.Logger
	historyMax int
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	hist := cfg.HistoryMax
	if hist <= 0 {
		hist = defaultHistoryMax
	}
	st := &sqliteStore{db: db, log: log, historyMax: hist}

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) ListRecipients(ctx context.Context) ([]campaign.Recipient, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, first_name, last_name, language_code, started_at
		 FROM recipients ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []campaign.Recipient
	for rows.Next() {
		var r campaign.Recipient
		var started sql.NullString
		if err := rows.Scan(&r.ID, &r.Username, &r.FirstName, &r.LastName, &r.LanguageCode, &started); err != nil {
			return nil, err
		}
		if started.Valid {
			if t, perr := time.Parse(time.RFC3339Nano, started.String); perr == nil {
				r.StartedAt = t
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) PutRecipient(ctx context.Context, r campaign.Recipient) error {
	var started any
	if !r.StartedAt.IsZero() {
		started = r.StartedAt.Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recipients(id, username, first_name, last_name, language_code, started_at)
		 VALUES(?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   username=excluded.username,
		   first_name=excluded.first_name,
		   last_name=excluded.last_name,
		   language_code=excluded.language_code`,
		r.ID, r.Username, r.FirstName, r.LastName, r.LanguageCode, started,
	)
	return err
}

// RemoveRecipient deletes the row if present. Absent ids are a no-op, so
// racing removals for the same recipient stay harmless.
func (s *sqliteStore) RemoveRecipient(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM recipients WHERE id = ?`, id)
	return err
}

func (s *sqliteStore) AppendReport(ctx context.Context, r campaign.Report) error {
	at := r.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reports(message_id, at, total, success, failed, success_pct,
		   it_reached, it_pct, es_reached, es_pct, other_reached, other_pct)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.MessageID, at.Format(time.RFC3339Nano), r.Total, r.Success, r.Failed, r.SuccessPct,
		r.ItalianReached, r.ItalianPct, r.SpanishReached, r.SpanishPct, r.OtherReached, r.OtherPct,
	)
	if err != nil {
		return err
	}

	// Bounded history: evict everything older than the newest historyMax rows.
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM reports WHERE id NOT IN (SELECT id FROM reports ORDER BY id DESC LIMIT ?)`,
		s.historyMax,
	)
	if err != nil {
		s.log.Warn("report history eviction failed", logx.Err(err))
	}
	return nil
}

func (s *sqliteStore) RecentReports(ctx context.Context, limit int) ([]campaign.Report, error) {
	if limit <= 0 || limit > s.historyMax {
		limit = s.historyMax
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, at, total, success, failed, success_pct,
		   it_reached, it_pct, es_reached, es_pct, other_reached, other_pct
		 FROM reports ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []campaign.Report
	for rows.Next() {
		var r campaign.Report
		var at string
		if err := rows.Scan(&r.MessageID, &at, &r.Total, &r.Success, &r.Failed, &r.SuccessPct,
			&r.ItalianReached, &r.ItalianPct, &r.SpanishReached, &r.SpanishPct, &r.OtherReached, &r.OtherPct); err != nil {
			return nil, err
		}
		if t, perr := time.Parse(time.RFC3339Nano, at); perr == nil {
			r.At = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
