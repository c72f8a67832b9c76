package apihttp

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"isolar-cloud/internal/observability/metrics"
	performance "isolar-cloud/internal/performance/domain"
	"isolar-cloud/internal/performance/infrastructure/irradiance"
	"isolar-cloud/internal/pvsyst"
)

const (
	maxJSONBytes = 20 << 20
	maxTextBytes = 10 << 20
)

// PerformanceHandler serves RPR estimation endpoints.
type PerformanceHandler struct {
	estimator *performance.Estimator
	logger    *log.Logger
}

// NewPerformanceHandler constructs a PerformanceHandler.
func NewPerformanceHandler(estimator *performance.Estimator, logger *log.Logger) (*PerformanceHandler, error) {
	if estimator == nil {
		return nil, errors.New("performance handler: nil estimator")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &PerformanceHandler{estimator: estimator, logger: logger}, nil
}

// Register mounts the performance routes.
func (h *PerformanceHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/v1/performance/rpr", h.handleRPR).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/performance/rpr/daily", h.handleDaily).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/performance/irradiance-profile", h.handleProfile).Methods(http.MethodPost)
}

type rprRequest struct {
	Records    []performance.IntervalRecord `json:"records"`
	Irradiance *performance.IrradianceTable `json:"irradiance"`
}

// handleRPR accepts a JSON body, or a multipart form with a "records" JSON
// field and an optional "irradiance" CSV/XLSX file.
func (h *PerformanceHandler) handleRPR(w http.ResponseWriter, r *http.Request) {
	var req rprRequest
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		req, err = readRPRForm(w, r)
	} else {
		err = decodeJSON(w, r, &req)
	}
	if err != nil {
		metrics.ObserveRPR(metrics.ResultFailure)
		h.logger.Printf("performance rpr: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Records) == 0 {
		metrics.ObserveRPR(metrics.ResultFailure)
		http.Error(w, "records are required", http.StatusBadRequest)
		return
	}
	result := h.estimator.Estimate(req.Records, req.Irradiance)
	metrics.ObserveRPR(metrics.ResultSuccess)
	writeJSON(w, result)
}

func readRPRForm(w http.ResponseWriter, r *http.Request) (rprRequest, error) {
	var req rprRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		return req, errors.New("invalid multipart form")
	}
	records := []byte(r.FormValue("records"))
	if file, _, err := r.FormFile("records"); err == nil {
		records, err = io.ReadAll(file)
		file.Close()
		if err != nil {
			return req, errors.New("read records error")
		}
	}
	if err := json.Unmarshal(records, &req.Records); err != nil {
		return req, errors.New("invalid records json")
	}
	file, header, err := r.FormFile("irradiance")
	if err != nil {
		return req, nil
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return req, errors.New("read irradiance error")
	}
	table, err := irradiance.Read(header.Filename, data)
	if err != nil {
		return req, err
	}
	req.Irradiance = table
	return req, nil
}

func (h *PerformanceHandler) handleDaily(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Daily       []performance.DayProduction `json:"daily"`
		GHI         []float64                   `json:"ghi"`
		CapacityKWp float64                     `json:"capacity_kwp"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.CapacityKWp <= 0 {
		http.Error(w, "capacity_kwp must be positive", http.StatusBadRequest)
		return
	}
	writeJSON(w, performance.DailySeries(req.Daily, req.GHI, req.CapacityKWp))
}

func (h *PerformanceHandler) handleProfile(w http.ResponseWriter, r *http.Request) {
	req := struct {
		GHI           []float64 `json:"ghi"`
		StepMinutes   int       `json:"step_minutes"`
		DaylightHours float64   `json:"daylight_hours"`
		DayStartHour  float64   `json:"day_start_hour"`
	}{StepMinutes: 5, DaylightHours: 12, DayStartHour: 6}
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.DaylightHours <= 0 || req.DaylightHours > 24 || req.DayStartHour < 0 || req.DayStartHour+req.DaylightHours > 24 {
		http.Error(w, "daylight window must fit in one day", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{
		"step_minutes": req.StepMinutes,
		"profile":      performance.IrradianceProfile(req.GHI, req.StepMinutes, req.DaylightHours, req.DayStartHour),
	})
}

// PVSystHandler extracts site facts from PVSyst report text.
type PVSystHandler struct{}

// NewPVSystHandler constructs a PVSystHandler.
func NewPVSystHandler() *PVSystHandler {
	return &PVSystHandler{}
}

// Register mounts the PVSyst route.
func (h *PVSystHandler) Register(r *mux.Router) {
	r.Handle("/api/v1/pvsyst/extract", h).Methods(http.MethodPost)
}

// ServeHTTP handles POST /api/v1/pvsyst/extract with a text body.
func (h *PVSystHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTextBytes))
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(string(body)) == "" {
		http.Error(w, "empty report text", http.StatusBadRequest)
		return
	}
	info := pvsyst.Extract(string(body))
	if r.URL.Query().Get("raw") != "1" {
		info.RawText = ""
	}
	writeJSON(w, info)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid json")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
