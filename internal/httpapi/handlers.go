package httpapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"herald/internal/campaign"
	"herald/internal/schedule"
	"herald/internal/services/trigger"
	"herald/pkg/logx"
)

const (
	defaultReportLimit = 20
	maxReportLimit     = 100
)

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	now := time.Now().In(s.runner.Location())
	results := s.runner.RunOnce(r.Context(), now)
	if results == nil {
		results = []trigger.Result{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"timestamp": now.Format(time.RFC3339),
		"results":   results,
	})
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	limit := defaultReportLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxReportLimit {
		limit = maxReportLimit
	}

	reports, err := s.reports.RecentReports(r.Context(), limit)
	if err != nil {
		s.log.Error("list reports", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "failed to load reports")
		return
	}
	if reports == nil {
		reports = []campaign.Report{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

// messageSummary is the public view of a message definition. File
// references stay private; only shapes and counts are exposed.
type messageSummary struct {
	ID        string   `json:"id"`
	Languages []string `json:"languages"`
	Photos    int      `json:"photos"`
	Videos    int      `json:"videos"`
	Buttons   int      `json:"buttons"`
	Schedule  []string `json:"schedule"`
	LifeHours int      `json:"lifeHours"`
	Protect   bool     `json:"protect"`
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	msgs := s.msgs.Messages()
	out := make([]messageSummary, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, summarize(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": out})
}

func summarize(m *campaign.Message) messageSummary {
	langs := map[campaign.Language]bool{}
	for l := range m.Text {
		langs[l] = true
	}
	photos := 0
	for l, refs := range m.Photos {
		langs[l] = true
		photos += len(refs)
	}
	videos := 0
	for l, refs := range m.Videos {
		langs[l] = true
		videos += len(refs)
	}
	names := make([]string, 0, len(langs))
	for l := range langs {
		names = append(names, string(l))
	}
	sort.Strings(names)

	return messageSummary{
		ID:        m.ID,
		Languages: names,
		Photos:    photos,
		Videos:    videos,
		Buttons:   len(m.Buttons),
		Schedule:  schedule.DescribeAll(m.Rules),
		LifeHours: m.LifeHours,
		Protect:   m.Protect,
	}
}

func (s *Server) handleBotInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       s.identity.ID,
		"username": s.identity.Username,
		"name":     s.identity.Name,
	})
}

type testSendRequest struct {
	MessageID string `json:"messageId"`
	Language  string `json:"language"`
}

// handleTestSend delivers one message to the admin chat so content can
// be previewed before its scheduled day.
func (s *Server) handleTestSend(w http.ResponseWriter, r *http.Request) {
	var req testSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MessageID == "" {
		writeError(w, http.StatusBadRequest, "messageId is required")
		return
	}

	lang := campaign.LangDefault
	switch req.Language {
	case "", string(campaign.LangDefault):
	case string(campaign.LangItalian):
		lang = campaign.LangItalian
	case string(campaign.LangSpanish):
		lang = campaign.LangSpanish
	default:
		writeError(w, http.StatusBadRequest, "unknown language")
		return
	}

	var msg *campaign.Message
	for _, m := range s.msgs.Messages() {
		if m.ID == req.MessageID {
			msg = m
			break
		}
	}
	if msg == nil {
		writeError(w, http.StatusNotFound, "unknown message id")
		return
	}

	rec := campaign.Recipient{ID: s.cfg.AdminID, Username: "admin"}
	outcome := s.sender.Send(r.Context(), rec, msg, lang)
	if !outcome.Success {
		s.log.Warn("test send failed",
			logx.String("message_id", req.MessageID),
			logx.String("error", outcome.Error))
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"success": false,
			"error":   outcome.Error,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"messageId":  req.MessageID,
		"language":   string(lang),
		"messageIds": outcome.MessageIDs,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
