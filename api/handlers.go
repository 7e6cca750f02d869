package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"casino/currency"
	"casino/models"
	"casino/service"

	"github.com/go-chi/chi/v5"
)

const (
	defaultLogHours = 24
	maxLogHours     = 24 * 30
)

// HealthResponse is returned by /health
type HealthResponse struct {
	Status    string `json:"status"`
	Store     string `json:"store"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

// BalanceResponse is returned by /api/v1/users/{id}/balance
type BalanceResponse struct {
	UserID         string     `json:"user_id"`
	Balance        string     `json:"balance"`
	Formatted      string     `json:"formatted"`
	DailyStatus    string     `json:"daily_status"`
	DailyStreak    int        `json:"daily_streak"`
	DailyAvailable *time.Time `json:"daily_available_at,omitempty"`
}

// LogEntry is one casino log row in /api/v1/users/{id}/logs
type LogEntry struct {
	ID        int64     `json:"id"`
	Game      string    `json:"game"`
	NetGain   string    `json:"net_gain"`
	Timestamp time.Time `json:"timestamp"`
}

// LogsResponse is returned by /api/v1/users/{id}/logs
type LogsResponse struct {
	UserID  string     `json:"user_id"`
	Hours   int        `json:"hours"`
	Game    string     `json:"game,omitempty"`
	Games   int        `json:"games"`
	Wins    int        `json:"wins"`
	Losses  int        `json:"losses"`
	NetGain string     `json:"net_gain"`
	Entries []LogEntry `json:"entries"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Store:     "ok",
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Timestamp: s.now().UTC().Format(time.RFC3339),
	}

	status := http.StatusOK
	if s.storePing != nil {
		if err := s.storePing(r.Context()); err != nil {
			resp.Status = "unhealthy"
			resp.Store = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, resp)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	account := s.economy.GetAccount(userID)
	daily := s.economy.DailyStatus(userID)

	resp := BalanceResponse{
		UserID:      userID,
		Balance:     account.Balance.StringFixed(currency.Precision),
		Formatted:   currency.Format(account.Balance),
		DailyStatus: string(daily.Status),
		DailyStreak: account.DailyStreak,
	}
	if daily.Status == models.DailyStatusUnavailable {
		at := daily.AvailableAt.UTC()
		resp.DailyAvailable = &at
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	hours := defaultLogHours
	if raw := r.URL.Query().Get("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxLogHours {
			writeError(w, r, http.StatusBadRequest, "validation", "hours must be an integer between 1 and 720")
			return
		}
		hours = parsed
	}

	var game *models.Game
	if raw := r.URL.Query().Get("game"); raw != "" {
		parsed, err := models.ParseGame(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "validation", err.Error())
			return
		}
		game = &parsed
	}

	entries, err := s.economy.FetchLogs(r.Context(), userID, time.Duration(hours)*time.Hour, game)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrStoreUnavailable) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, r, status, "store", service.UserMessage(err))
		return
	}

	stats := models.NewGameStats(entries, game)
	resp := LogsResponse{
		UserID:  userID,
		Hours:   hours,
		Games:   stats.TotalGames,
		Wins:    stats.TotalWins,
		Losses:  stats.TotalLosses,
		NetGain: stats.NetGain.StringFixed(currency.Precision),
		Entries: make([]LogEntry, 0, len(entries)),
	}
	if game != nil {
		resp.Game = game.String()
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, LogEntry{
			ID:        e.ID,
			Game:      e.Game.String(),
			NetGain:   e.NetGain.StringFixed(currency.Precision),
			Timestamp: e.Timestamp.UTC(),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
