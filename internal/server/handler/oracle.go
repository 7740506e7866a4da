package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/oraclewatch/internal/domain"
	"github.com/alanyoungcy/oraclewatch/internal/monitor"
	"github.com/alanyoungcy/oraclewatch/internal/registry"
)

// OracleHandler serves deviation and recommendation data produced by the
// opportunity monitor.
type OracleHandler struct {
	monitor  *monitor.Monitor
	registry *registry.Registry
	logger   *slog.Logger
}

// NewOracleHandler creates an OracleHandler.
func NewOracleHandler(m *monitor.Monitor, reg *registry.Registry, logger *slog.Logger) *OracleHandler {
	return &OracleHandler{
		monitor:  m,
		registry: reg,
		logger:   logHandler(logger, "oracle"),
	}
}

// networkInfo is the JSON shape of one registry entry.
type networkInfo struct {
	Name    string   `json:"name"`
	ChainID int64    `json:"chain_id"`
	Assets  []string `json:"assets"`
}

// ListNetworks returns the registered networks and the assets each serves.
// GET /api/networks
func (h *OracleHandler) ListNetworks(w http.ResponseWriter, r *http.Request) {
	out := make([]networkInfo, 0, h.registry.Size())
	for _, name := range h.registry.Networks() {
		n, _ := h.registry.Network(name)
		assets := make([]string, 0, len(n.Feeds))
		for asset := range n.Feeds {
			assets = append(assets, asset)
		}
		out = append(out, networkInfo{Name: n.Name, ChainID: n.ChainID, Assets: assets})
	}
	writeJSON(w, http.StatusOK, map[string]any{"networks": out})
}

// GetStatus returns the monitor's operational snapshot.
// GET /api/status
func (h *OracleHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.Status())
}

// GetDeviation runs a fresh aggregation round for the asset and returns its
// deviation report. A round with fewer than two valid samples is reported as
// insufficient data, not as a failure.
// GET /api/deviation/{asset}
func (h *OracleHandler) GetDeviation(w http.ResponseWriter, r *http.Request) {
	asset := pathParam(r, "asset")
	if asset == "" {
		writeError(w, http.StatusBadRequest, "asset is required")
		return
	}

	report := h.monitor.CurrentDeviation(r.Context(), asset)
	writeJSON(w, http.StatusOK, map[string]any{
		"report":            report,
		"insufficient_data": report.InsufficientData(),
	})
}

// GetLatestRound returns the most recently completed scheduled round for the
// asset.
// GET /api/deviation/{asset}/latest
func (h *OracleHandler) GetLatestRound(w http.ResponseWriter, r *http.Request) {
	asset := pathParam(r, "asset")
	result, err := h.monitor.Latest(asset)
	if err != nil {
		if errors.Is(err, domain.ErrNoRound) {
			writeError(w, http.StatusNotFound, "no completed round for asset "+asset)
			return
		}
		h.logger.Error("latest round lookup failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetRecommendations returns the recommendations from the most recently
// completed round for the asset. The list is empty when the round did not
// exceed the deviation threshold.
// GET /api/recommendations/{asset}
func (h *OracleHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	asset := pathParam(r, "asset")
	result, err := h.monitor.Latest(asset)
	if err != nil {
		if errors.Is(err, domain.ErrNoRound) {
			writeError(w, http.StatusNotFound, "no completed round for asset "+asset)
			return
		}
		h.logger.Error("latest round lookup failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	recs := result.Recommendations
	if recs == nil {
		recs = []domain.TradeRecommendation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"round_id":        result.ID,
		"asset":           result.Asset,
		"completed_at":    result.CompletedAt,
		"recommendations": recs,
	})
}
