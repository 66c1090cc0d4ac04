package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	yaml "go.yaml.in/yaml/v3"

	"herald/internal/campaign"
	"herald/internal/schedule"
	"herald/pkg/logx"
)

// messagesFile is the on-disk shape of the message definitions file.
type messagesFile struct {
	Messages []*campaign.Message `yaml:"messages"`
}

// MessageManager owns the message definitions: initial load, validation,
// recurrence-rule parsing and fsnotify-based hot reload.
//
// Messages() is safe for concurrent use; the slice it returns is never
// mutated after publication.
type MessageManager struct {
	path string
	log  logx.Logger

	mu   sync.RWMutex
	msgs []*campaign.Message
}

func NewMessageManager(path string, log logx.Logger) *MessageManager {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &MessageManager{path: path, log: log}
}

// Load parses and commits the messages file. The first call must succeed;
// later reloads keep the previous set on failure.
func (m *MessageManager) Load() error {
	msgs, err := m.parse()
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.msgs = msgs
	m.mu.Unlock()
	m.log.Info("message definitions loaded", logx.Int("count", len(msgs)), logx.String("path", m.path))
	return nil
}

func (m *MessageManager) Messages() []*campaign.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.msgs
}

func (m *MessageManager) parse() ([]*campaign.Message, error) {
	b, err := os.ReadFile(m.path)
	if err != nil {
		return nil, err
	}

	var f messagesFile
	dec := yaml.NewDecoder(strings.NewReader(string(b)))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", m.path, err)
	}

	seen := map[string]bool{}
	for _, msg := range f.Messages {
		if strings.TrimSpace(msg.ID) == "" {
			return nil, fmt.Errorf("message without id in %s", m.path)
		}
		if seen[msg.ID] {
			return nil, fmt.Errorf("duplicate message id %q in %s", msg.ID, m.path)
		}
		seen[msg.ID] = true

		if msg.LifeHours < 0 {
			return nil, fmt.Errorf("message %q: life_hours must be >= 0", msg.ID)
		}

		// Rules are parsed once here; unknown tokens drop out quietly but
		// are worth a load-time warning for the operator.
		msg.Rules = schedule.Parse(msg.Schedule)
		if dropped := countTokens(msg.Schedule) - len(msg.Rules); dropped > 0 {
			m.log.Warn("unrecognized schedule tokens ignored",
				logx.String("message", msg.ID),
				logx.Int("dropped", dropped))
		}
	}
	return f.Messages, nil
}

func countTokens(tokens []string) int {
	n := 0
	for _, t := range tokens {
		if strings.TrimSpace(t) != "" {
			n++
		}
	}
	return n
}

// Watch reloads the messages file on change until ctx is cancelled.
// A broken watcher is recreated with backoff; a bad file revision is
// rejected and the previous set stays live.
func (m *MessageManager) Watch(ctx context.Context) {
	dir := filepath.Dir(m.path)
	file := filepath.Base(m.path)

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	// debounce to avoid reloading partial editor writes
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(250*time.Millisecond, func() {
			if err := m.Load(); err != nil {
				m.log.Warn("message definitions rejected; keeping previous set",
					logx.String("path", m.path), logx.Err(err))
			}
		})
	}

	backoff := 250 * time.Millisecond
	const backoffMax = 5 * time.Second

	for ctx.Err() == nil {
		w, err := fsnotify.NewWatcher()
		if err == nil {
			err = w.Add(dir)
		}
		if err != nil {
			if w != nil {
				_ = w.Close()
			}
			m.log.Warn("messages watch init failed", logx.String("dir", dir), logx.Err(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < backoffMax {
				backoff *= 2
			}
			continue
		}
		backoff = 250 * time.Millisecond

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = w.Close()
				return
			case ev, ok := <-w.Events:
				if !ok {
					broken = true
					break
				}
				if strings.EqualFold(filepath.Base(ev.Name), file) &&
					ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
					debounce()
				}
			case werr, ok := <-w.Errors:
				if !ok {
					broken = true
					break
				}
				if werr != nil {
					m.log.Warn("messages watch error", logx.String("dir", dir), logx.Err(werr))
				}
			}
		}
		_ = w.Close()
	}
}
