package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"PcapSpectra/internal/model"
	"PcapSpectra/internal/report"

	"github.com/gorilla/mux"
)

// NewHTTPHandler returns the REST router.
func NewHTTPHandler(s *Service) http.Handler {
	h := &httpHandler{svc: s}
	r := mux.NewRouter()

	r.HandleFunc("/health", h.health).Methods("GET")
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/analyses", h.listAnalyses).Methods("GET")
	api.HandleFunc("/analyses/{id}", h.getAnalysis).Methods("GET")
	api.HandleFunc("/analyses/{id}/protocols", h.getProtocols).Methods("GET")
	api.HandleFunc("/analyses/{id}/report", h.getReport).Methods("GET")
	api.HandleFunc("/conversations/{id}", h.getConversations).Methods("GET")
	api.HandleFunc("/timeline/{id}", h.getTimeline).Methods("GET")

	// Grafana JSON datasource endpoints.
	r.HandleFunc("/search", h.grafanaSearch).Methods("POST")
	r.HandleFunc("/query", h.grafanaQuery).Methods("POST")

	return r
}

type httpHandler struct {
	svc *Service
}

func (h *httpHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *httpHandler) listAnalyses(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, list)
}

func (h *httpHandler) getAnalysis(w http.ResponseWriter, r *http.Request) {
	topN, err := intParam(r, "top", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	summary, err := h.svc.Summary(r.Context(), mux.Vars(r)["id"], topN)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, summary)
}

func (h *httpHandler) getProtocols(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Protocols(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, stats)
}

func (h *httpHandler) getConversations(w http.ResponseWriter, r *http.Request) {
	// Malformed paging values fall back to the defaults.
	page, err := intParam(r, "page", 1)
	if err != nil {
		page = 1
	}
	size, err := intParam(r, "pageSize", 0)
	if err != nil {
		size = 0
	}
	result, err := h.svc.Conversations(r.Context(), mux.Vars(r)["id"], page, size)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, result)
}

func (h *httpHandler) getTimeline(w http.ResponseWriter, r *http.Request) {
	var q TimelineQuery
	var err error
	if q.IntervalSeconds, err = int64Param(r, "interval"); err != nil {
		writeError(w, err)
		return
	}
	if q.MaxDataPoints, err = intParam(r, "maxDataPoints", 0); err != nil {
		writeError(w, err)
		return
	}
	if v := r.URL.Query().Get("autoAdjust"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, fmt.Errorf("%w: autoAdjust: %v", model.ErrInvalidArgument, err))
			return
		}
		q.AutoAdjust = &b
	}
	if q.Start, err = timeParam(r, "start"); err != nil {
		writeError(w, err)
		return
	}
	if q.End, err = timeParam(r, "end"); err != nil {
		writeError(w, err)
		return
	}

	bins, err := h.svc.Timeline(r.Context(), mux.Vars(r)["id"], q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, bins)
}

func (h *httpHandler) getReport(w http.ResponseWriter, r *http.Request) {
	c, md, err := h.svc.Report(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	if r.URL.Query().Get("format") == "md" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write(md)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(report.HTML("Traffic report: "+c.Name, md))
}

// ---- Grafana JSON datasource ----

type grafanaQueryRequest struct {
	Targets []struct {
		Target string `json:"target"`
	} `json:"targets"`
	Range struct {
		From time.Time `json:"from"`
		To   time.Time `json:"to"`
	} `json:"range"`
	MaxDataPoints int `json:"maxDataPoints"`
}

type timeSeriesResponse struct {
	Target     string      `json:"target"`
	Datapoints [][]float64 `json:"datapoints"` // [ [value, timestamp_ms], ... ]
}

// grafanaSearch lists capture IDs as metric targets.
func (h *httpHandler) grafanaSearch(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	targets := make([]string, 0, len(list))
	for _, c := range list {
		targets = append(targets, c.ID)
	}
	writeJSON(w, targets)
}

// grafanaQuery returns the packet timeline of each target capture over the
// dashboard range.
func (h *httpHandler) grafanaQuery(w http.ResponseWriter, r *http.Request) {
	var req grafanaQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	response := make([]timeSeriesResponse, 0, len(req.Targets))
	for _, target := range req.Targets {
		bins, err := h.svc.Timeline(r.Context(), target.Target, TimelineQuery{
			Start:         req.Range.From,
			End:           req.Range.To,
			MaxDataPoints: req.MaxDataPoints,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		ts := timeSeriesResponse{Target: target.Target, Datapoints: make([][]float64, 0, len(bins))}
		for _, bin := range bins {
			ts.Datapoints = append(ts.Datapoints, []float64{float64(bin.PacketCount), float64(bin.Timestamp.UnixMilli())})
		}
		response = append(response, ts)
	}
	writeJSON(w, response)
}

// ---- helpers ----

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, model.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		log.Printf("Error serving request: %v", err)
		http.Error(w, fmt.Sprintf("internal error: %v", err), http.StatusInternalServerError)
	}
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", model.ErrInvalidArgument, name)
	}
	return n, nil
}

// int64Param returns nil when the parameter is absent.
func int64Param(r *http.Request, name string) (*int64, error) {
	if !r.URL.Query().Has(name) {
		return nil, nil
	}
	n, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", model.ErrInvalidArgument, name)
	}
	return &n, nil
}

// timeParam accepts Unix milliseconds or RFC 3339.
func timeParam(r *http.Request, name string) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, nil
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be Unix milliseconds or RFC 3339", model.ErrInvalidArgument, name)
	}
	return t, nil
}
