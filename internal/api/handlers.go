package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yegors/metar-reader/internal/metar"
	"github.com/yegors/metar-reader/internal/weather"
	"github.com/yegors/metar-reader/pkg/logger"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// Handler contains the API handlers
type Handler struct {
	weatherService *weather.Service
	clientCounter  ClientCounter
	startedAt      time.Time
	version        string
	logger         *logger.Logger
}

// ClientCounter reports connected live feed clients
type ClientCounter interface {
	ClientCount() int
}

// NewHandler creates a new API handler
func NewHandler(weatherService *weather.Service, clientCounter ClientCounter, version string, logger *logger.Logger) *Handler {
	return &Handler{
		weatherService: weatherService,
		clientCounter:  clientCounter,
		startedAt:      time.Now(),
		version:        version,
		logger:         logger.Named("api-handler"),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type decodeRequest struct {
	RawMETAR string `json:"raw_metar"`
}

type decodeResponse struct {
	Decoded *metar.Report `json:"decoded_data"`
}

// legacyResponse is the body of a successful POST /get_metar
type legacyResponse struct {
	AirportCode string        `json:"airport_code"`
	RawMETAR    string        `json:"raw_metar"`
	Decoded     *metar.Report `json:"decoded_data"`
}

// GetMETAR fetches and decodes the current report for an airport.
// ?refresh=true skips the cache.
func (h *Handler) GetMETAR(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	refresh := false
	if raw := r.URL.Query().Get("refresh"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			WriteJSON(w, http.StatusBadRequest, errorResponse{Error: "refresh must be true or false"})
			return
		}
		refresh = parsed
	}

	lookup := h.weatherService.Lookup
	if refresh {
		lookup = h.weatherService.Refresh
	}

	result, err := lookup(r.Context(), code)
	if err != nil {
		h.writeLookupError(w, code, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// DecodeMETAR decodes report text supplied by the caller
func (h *Handler) DecodeMETAR(w http.ResponseWriter, r *http.Request) {
	var req decodeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		WriteJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	report, err := h.weatherService.DecodeRaw(req.RawMETAR)
	if err != nil {
		WriteJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}

	WriteJSON(w, http.StatusOK, decodeResponse{Decoded: report})
}

// GetHistory returns stored reports for an airport, newest first
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code")))

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			WriteJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(parsed, maxHistoryLimit)
	}

	records, err := h.weatherService.History(r.Context(), code, limit)
	if err != nil {
		var validationErr *weather.ValidationError
		switch {
		case errors.As(err, &validationErr):
			WriteJSON(w, http.StatusBadRequest, errorResponse{Error: validationErr.Error()})
		case errors.Is(err, weather.ErrHistoryUnavailable):
			WriteJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		default:
			h.logger.Error("Failed to load report history",
				logger.String("airport", code),
				logger.Error(err))
			WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to load history"})
		}
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"airport_code": code,
		"count":        len(records),
		"reports":      records,
	})
}

// GetLatest returns the newest stored report for an airport without fetching
func (h *Handler) GetLatest(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	record, err := h.weatherService.Latest(r.Context(), code)
	if err != nil {
		var validationErr *weather.ValidationError
		switch {
		case errors.As(err, &validationErr):
			WriteJSON(w, http.StatusBadRequest, errorResponse{Error: validationErr.Error()})
		case errors.Is(err, weather.ErrHistoryUnavailable):
			WriteJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		case errors.Is(err, weather.ErrNoStoredReport):
			WriteJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		default:
			h.logger.Error("Failed to load latest report",
				logger.String("airport", code),
				logger.Error(err))
			WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to load latest report"})
		}
		return
	}

	WriteJSON(w, http.StatusOK, record)
}

// PostGetMETAR serves the form endpoint of the original web page. It always
// answers 200 and reports failures in the "error" field.
func (h *Handler) PostGetMETAR(w http.ResponseWriter, r *http.Request) {
	lookup, err := h.weatherService.Lookup(r.Context(), r.PostFormValue("airport_code"))
	if err != nil {
		WriteJSON(w, http.StatusOK, errorResponse{Error: err.Error()})
		return
	}

	WriteJSON(w, http.StatusOK, legacyResponse{
		AirportCode: lookup.AirportCode,
		RawMETAR:    lookup.RawMETAR,
		Decoded:     lookup.Decoded,
	})
}

// Health reports service liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":         "ok",
		"version":        h.version,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"watch_airports": h.weatherService.WatchAirports(),
	}
	if h.clientCounter != nil {
		response["live_feed_clients"] = h.clientCounter.ClientCount()
	}
	WriteJSON(w, http.StatusOK, response)
}

// GetCacheStats returns report cache statistics
func (h *Handler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.weatherService.CacheStats())
}

func (h *Handler) writeLookupError(w http.ResponseWriter, code string, err error) {
	var validationErr *weather.ValidationError
	var fetchErr *weather.FetchError

	switch {
	case errors.As(err, &validationErr):
		WriteJSON(w, http.StatusBadRequest, errorResponse{Error: validationErr.Error()})
	case errors.As(err, &fetchErr):
		WriteJSON(w, http.StatusBadGateway, errorResponse{Error: fetchErr.Error()})
	case errors.Is(err, metar.ErrEmptyReport):
		WriteJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	default:
		h.logger.Error("METAR lookup failed",
			logger.String("airport", code),
			logger.Error(err))
		WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: "An error occurred: " + err.Error()})
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
