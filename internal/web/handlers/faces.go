package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/suzWaks/frs-fyp-mobileApp/internal/facematch"
	"github.com/suzWaks/frs-fyp-mobileApp/internal/recognition"
)

// FaceService is the recognition pipeline the handlers drive.
type FaceService interface {
	Register(ctx context.Context, req recognition.RegisterRequest) (recognition.RegisterResult, error)
	Recognize(ctx context.Context, image string) (facematch.Outcome, error)
	Inspect(ctx context.Context) ([]recognition.Inspection, error)
	Stats(ctx context.Context) (recognition.Stats, error)
}

// FacesHandler serves face registration and recognition.
type FacesHandler struct {
	service      FaceService
	maxBodyBytes int64
	logger       logrus.FieldLogger
}

// NewFacesHandler creates a new faces handler. maxBodyBytes bounds request
// bodies; zero disables the limit.
func NewFacesHandler(service FaceService, maxBodyBytes int64, logger logrus.FieldLogger) *FacesHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &FacesHandler{service: service, maxBodyBytes: maxBodyBytes, logger: logger}
}

// registerRequest keeps the field names the mobile app sends.
type registerRequest struct {
	Image       string `json:"image"`
	StudentID   string `json:"studentId"`
	StudentName string `json:"studentName"`
}

type recognizeRequest struct {
	Image string `json:"image"`
}

type registerResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message,omitempty"`
	Error          string `json:"error,omitempty"`
	RegistrationID string `json:"registration_id,omitempty"`
}

type matchResponse struct {
	StudentID   string  `json:"Student_Id"`
	StudentName string  `json:"StudentName"`
	Similarity  float64 `json:"similarity"`
}

type recognizeResponse struct {
	Success    bool            `json:"success"`
	Matched    *bool           `json:"matched,omitempty"`
	BestMatch  *matchResponse  `json:"best_match,omitempty"`
	Message    string          `json:"message"`
	Hint       string          `json:"hint,omitempty"`
	AllMatches []matchResponse `json:"all_matches,omitempty"`
}

type debugEntry struct {
	StudentID string    `json:"Student_Id"`
	Sample    []float32 `json:"Sample,omitempty"`
	Error     string    `json:"Error,omitempty"`
}

// Register handles POST /recognize and /api/v1/faces/register.
func (h *FacesHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, h.maxBodyBytes, &req) {
		return
	}

	res, err := h.service.Register(r.Context(), recognition.RegisterRequest{
		Image:       req.Image,
		StudentID:   req.StudentID,
		StudentName: req.StudentName,
	})
	if err != nil {
		h.respondFailure(w, "register", err)
		return
	}

	resp := registerResponse{
		Success: res.Outcome.Success(),
		Message: res.Outcome.Message,
	}
	if res.Outcome.Kind == facematch.OutcomeRegistered {
		resp.RegistrationID = res.RegistrationID.String()
	}
	respondJSON(w, http.StatusOK, resp)
}

// Recognize handles POST /compare and /api/v1/faces/recognize.
func (h *FacesHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	var req recognizeRequest
	if !decodeJSON(w, r, h.maxBodyBytes, &req) {
		return
	}

	outcome, err := h.service.Recognize(r.Context(), req.Image)
	if err != nil {
		h.respondFailure(w, "recognize", err)
		return
	}

	respondJSON(w, http.StatusOK, newRecognizeResponse(outcome))
}

// Debug handles GET /debug_embeddings and /api/v1/faces/debug.
func (h *FacesHandler) Debug(w http.ResponseWriter, r *http.Request) {
	inspections, err := h.service.Inspect(r.Context())
	if err != nil {
		h.respondFailure(w, "debug", err)
		return
	}

	entries := make([]debugEntry, 0, len(inspections))
	for _, in := range inspections {
		e := debugEntry{StudentID: in.StudentID, Sample: in.Sample}
		if in.Err != nil {
			e.Error = in.Err.Error()
		}
		entries = append(entries, e)
	}
	respondJSON(w, http.StatusOK, entries)
}

// Stats handles GET /api/v1/faces/stats.
func (h *FacesHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Stats(r.Context())
	if err != nil {
		h.respondFailure(w, "stats", err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func newRecognizeResponse(o facematch.Outcome) recognizeResponse {
	resp := recognizeResponse{
		Success: o.Success(),
		Message: o.Message,
		Hint:    o.Hint,
	}
	if o.Kind == facematch.OutcomeNoMatchNoData {
		return resp
	}

	matched := o.Kind == facematch.OutcomeMatched
	resp.Matched = &matched
	if o.Best != nil {
		resp.BestMatch = &matchResponse{
			StudentID:   o.Best.Identity,
			StudentName: o.Best.DisplayName,
			Similarity:  o.Best.Score,
		}
	}
	resp.AllMatches = make([]matchResponse, 0, len(o.Matches))
	for _, m := range o.Matches {
		resp.AllMatches = append(resp.AllMatches, matchResponse{
			StudentID:   m.Identity,
			StudentName: m.DisplayName,
			Similarity:  m.Score,
		})
	}
	return resp
}

// respondFailure maps service errors onto status codes and payloads.
func (h *FacesHandler) respondFailure(w http.ResponseWriter, operation string, err error) {
	var inErr *recognition.InputError
	switch {
	case errors.As(err, &inErr):
		respondError(w, http.StatusBadRequest, inErr.Message)
	case errors.Is(err, recognition.ErrAlreadyRegistered):
		respondJSON(w, http.StatusConflict, registerResponse{Error: recognition.ErrAlreadyRegistered.Error()})
	case errors.Is(err, facematch.ErrModelOutput), errors.Is(err, recognition.ErrModelUnavailable):
		h.logger.WithField("operation", operation).WithError(err).Error("face model failed")
		respondError(w, http.StatusInternalServerError, sanitizeForLog(err.Error()))
	case errors.Is(err, context.DeadlineExceeded):
		respondJSON(w, http.StatusGatewayTimeout, registerResponse{Error: "request timed out"})
	default:
		h.logger.WithField("operation", operation).WithError(err).Error("request failed")
		respondJSON(w, http.StatusInternalServerError, registerResponse{Error: sanitizeForLog(err.Error())})
	}
}
