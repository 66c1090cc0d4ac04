// Package httpapi exposes the operational HTTP surface: manual run
// trigger, report history, message inventory and a test-send endpoint.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"herald/internal/campaign"
	"herald/internal/services/trigger"
	"herald/internal/transport"
	"herald/pkg/logx"
)

type Config struct {
	Addr string
	// Secret guards the mutating endpoints. Empty leaves them open,
	// which is only sane behind a trusted reverse proxy.
	Secret string
	// AdminID is the chat test sends are delivered to.
	AdminID int64
}

// Runner triggers one manual broadcast run.
type Runner interface {
	RunOnce(ctx context.Context, now time.Time) []trigger.Result
	Location() *time.Location
}

// ReportLog reads persisted delivery reports, most recent first.
type ReportLog interface {
	RecentReports(ctx context.Context, limit int) ([]campaign.Report, error)
}

// Messages yields the current message definitions.
type Messages interface {
	Messages() []*campaign.Message
}

// Sender delivers one message to one recipient, used by test sends.
type Sender interface {
	Send(ctx context.Context, rec campaign.Recipient, msg *campaign.Message, lang campaign.Language) campaign.Outcome
}

type Server struct {
	cfg      Config
	runner   Runner
	reports  ReportLog
	msgs     Messages
	sender   Sender
	identity transport.BotIdentity
	log      logx.Logger

	ln  net.Listener
	srv *http.Server
}

func New(cfg Config, runner Runner, reports ReportLog, msgs Messages, sender Sender, identity transport.BotIdentity, log logx.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		runner:   runner,
		reports:  reports,
		msgs:     msgs,
		sender:   sender,
		identity: identity,
		log:      log.With(logx.String("component", "httpapi")),
	}
	s.srv = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute, // a manual run can take a while
		IdleTimeout:       time.Minute,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/reports", s.handleReports)
		r.Get("/messages", s.handleMessages)
		r.Get("/bot-info", s.handleBotInfo)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSecret)
			r.Get("/run", s.handleRun)
			r.Post("/test-send", s.handleTestSend)
		})
	})

	return r
}

// Start begins serving. It returns once the listener is bound; serve
// errors after that are logged, not returned.
func (s *Server) Start() error {
	addr := s.cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.ln = ln

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server stopped", logx.Err(err))
		}
	}()

	s.log.Info("http api listening", logx.String("addr", ln.Addr().String()))
	return nil
}

func (s *Server) Stop(ctx context.Context) {
	if s.ln == nil {
		return
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		_ = s.srv.Close()
	}
	s.ln = nil
}

func (s *Server) requireSecret(next http.Handler) http.Handler {
	secret := strings.TrimSpace(s.cfg.Secret)
	if secret == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const p = "Bearer "
		ah := r.Header.Get("Authorization")
		if strings.HasPrefix(ah, p) && strings.TrimSpace(strings.TrimPrefix(ah, p)) == secret {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "unauthorized")
	})
}
