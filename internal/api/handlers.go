package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	scanerrors "github.com/token-scanner/internal/errors"
)

const (
	defaultOpportunityDays = 7
	maxOpportunityDays     = 90
)

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":  "healthy",
		"service": "token-scanner",
	}
	if s.worker != nil {
		lastRun, observed := s.worker.LastRun()
		if !lastRun.IsZero() {
			body["lastScan"] = lastRun.Format(time.RFC3339)
			body["lastScanTokens"] = observed
		}
	}
	respondJSON(w, http.StatusOK, body)
}

// handleStats returns aggregate performance stats across all tracked tokens.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.monitor.Tracker().GetPerformanceStats())
}

// handleOpportunities returns recent high-gain tokens, ordered by current
// gain. The days query parameter bounds the first-mention lookback.
func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	days := defaultOpportunityDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxOpportunityDays {
			respondCategorized(w, scanerrors.NewInvalidParameterError("days",
				"must be an integer between 1 and 90"))
			return
		}
		days = parsed
	}

	opportunities := s.monitor.Tracker().GetRecentOpportunities(days)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"days":          days,
		"count":         len(opportunities),
		"opportunities": opportunities,
	})
}

// handlePatterns returns descriptive statistics over successful calls.
func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.monitor.Tracker().FindSuccessPatterns())
}

// handleHistory returns the full record for one symbol.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	record := s.monitor.Tracker().GetHistory(symbol)
	if record == nil {
		respondCategorized(w, scanerrors.NewNotFoundError("token history", symbol))
		return
	}
	respondJSON(w, http.StatusOK, record)
}

// handleExport returns the full tracker state as one document.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.monitor.Tracker().Export())
}
