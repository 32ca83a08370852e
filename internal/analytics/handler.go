package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
)

// Handler serves the live aggregate.
type Handler struct {
	aggregator *Aggregator
	logger     *slog.Logger
}

func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{
		aggregator: aggregator,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

// Stats writes AggregatedStats. Query parameters narrow the response:
// strategy=name keeps one strategy's breakdown and top=N trims the keyphrase
// and corpus leaderboards to N entries.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	top := -1
	if raw := q.Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.respond(w, http.StatusBadRequest, map[string]string{"error": "top must be a positive integer"})
			return
		}
		top = n
	}

	stats := h.aggregator.Stats()
	if name := q.Get("strategy"); name != "" {
		stats.Strategies = slices.DeleteFunc(stats.Strategies, func(s StrategyStats) bool {
			return s.Strategy != name
		})
	}
	if top > 0 {
		stats.TopKeyphrases = stats.TopKeyphrases[:min(top, len(stats.TopKeyphrases))]
		stats.TopCorpora = stats.TopCorpora[:min(top, len(stats.TopCorpora))]
	}
	h.respond(w, http.StatusOK, stats)
}

func (h *Handler) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("writing analytics response", "error", err)
	}
}
