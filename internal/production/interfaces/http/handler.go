package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"isolar-cloud/internal/audit"
	"isolar-cloud/internal/auth"
	"isolar-cloud/internal/observability/metrics"
	"isolar-cloud/internal/production/application"
	production "isolar-cloud/internal/production/domain"
	"isolar-cloud/internal/production/interfaces"
)

const defaultMaxUploadBytes = 50 << 20

// uploadFields are the multipart fields accepted for the log file.
var uploadFields = []string{"file", "logfile"}

// Handler provides production log HTTP endpoints.
type Handler struct {
	service        *application.ParseService
	auditLogger    audit.Logger
	logger         *log.Logger
	maxUploadBytes int64
}

// NewHandler constructs a handler.
func NewHandler(service *application.ParseService, auditLogger audit.Logger, logger *log.Logger, maxUploadBytes int64) (*Handler, error) {
	if service == nil {
		return nil, errors.New("production handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{service: service, auditLogger: auditLogger, logger: logger, maxUploadBytes: maxUploadBytes}, nil
}

// Register mounts the production routes.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/api/v1/production/uploads", h.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/production/parse", h.handleParse).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/production/reports", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/production/reports/{id}", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/production/reports/{id}/export.{format:pdf|xlsx|csv}", h.handleExport).Methods(http.MethodGet)
}

type uploadResponse struct {
	ReportID string                  `json:"report_id,omitempty"`
	Result   production.ParseResult  `json:"result"`
	Period   application.PeriodCheck `json:"period"`
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	name, data, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	stationID := r.FormValue("station_id")
	report, err := h.service.Import(r.Context(), application.ImportRequest{
		TenantID:  auth.TenantIDFromContext(r.Context()),
		StationID: stationID,
		FileName:  name,
		Data:      data,
	})
	if err != nil {
		h.logger.Printf("production upload: file=%s: %v", name, err)
		respondServiceError(w, err)
		return
	}
	writeJSON(w, uploadResponse{ReportID: report.ID, Result: report.Result, Period: report.Period})
	h.logAudit(r, report.StationID, report.ID, "production.upload", map[string]any{
		"file_name": name,
		"source":    report.Source,
		"success":   report.Result.Success,
		"bytes":     len(data),
	})
}

func (h *Handler) handleParse(w http.ResponseWriter, r *http.Request) {
	name, data, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	format, err := h.service.DetectFormat(name)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	result, err := h.service.Parse(r.Context(), format, data)
	if err != nil {
		h.logger.Printf("production parse: file=%s: %v", name, err)
		respondServiceError(w, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
			return "", nil, false
		}
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return "", nil, false
	}
	for _, field := range uploadFields {
		file, header, err := r.FormFile(field)
		if err != nil {
			continue
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			http.Error(w, "read upload error", http.StatusBadRequest)
			return "", nil, false
		}
		return header.Filename, data, true
	}
	http.Error(w, "no file uploaded", http.StatusBadRequest)
	return "", nil, false
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	stationID := r.URL.Query().Get("station_id")
	list, err := h.service.List(r.Context(), auth.TenantIDFromContext(r.Context()), stationID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if list == nil {
		list = []application.Report{}
	}
	writeJSON(w, list)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Get(r.Context(), auth.TenantIDFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, report)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	format := vars["format"]
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveReportExport(format, result, time.Since(start))
	}()

	report, err := h.service.Get(r.Context(), auth.TenantIDFromContext(r.Context()), vars["id"])
	if err != nil {
		result = metrics.ResultError
		respondServiceError(w, err)
		return
	}
	data, err := interfaces.BuildReport(format, report)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "export "+format+" error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", interfaces.ExportContentType(format))
	w.Header().Set("Content-Disposition", `attachment; filename="production-`+report.ID+`.`+format+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	h.logAudit(r, report.StationID, report.ID, "production.export", map[string]any{"format": format})
}

func (h *Handler) logAudit(r *http.Request, stationID, reportID, action string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok || id.TenantID == "" {
		return
	}
	entry := audit.FromRequest(r, action, meta)
	entry.TenantID = id.TenantID
	entry.Actor = id.Subject
	entry.Role = string(id.Role)
	entry.ResourceType = "production_report"
	entry.ResourceID = reportID
	entry.StationID = stationID
	if err := h.auditLogger.Log(r.Context(), entry); err != nil {
		h.logger.Printf("production audit: action=%s: %v", action, err)
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func respondServiceError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, application.ErrReportNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, application.ErrEmptyFile), errors.Is(err, production.ErrUnsupportedFormat):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, production.ErrStreamRead):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
