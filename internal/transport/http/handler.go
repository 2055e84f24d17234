package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"cartie-training-service/internal/app"
	"cartie-training-service/internal/domain"
	"cartie-training-service/internal/logging"
)

// Handler exposes the assessment, progress, and certificate use cases as a
// JSON API. Identity arrives pre-verified from the auth layer in the
// X-User-Id header.
type Handler struct {
	assessments  *app.AssessmentService
	progress     *app.ProgressService
	certificates *app.CertificateService
	log          *logging.Logger
}

func NewHandler(assessments *app.AssessmentService, progress *app.ProgressService, certificates *app.CertificateService, log *logging.Logger) *Handler {
	return &Handler{
		assessments:  assessments,
		progress:     progress,
		certificates: certificates,
		log:          log,
	}
}

// Routes mounts every endpoint on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/assessment", h.getAssessment)
	mux.HandleFunc("/assessment/attempts", h.submitAttempt)
	mux.HandleFunc("/progress", h.updateProgress)
	mux.HandleFunc("/progress/overview", h.progressOverview)
	mux.HandleFunc("/certificates/enroll", h.enroll)
	mux.HandleFunc("/certificates", h.listCertificates)
	return mux
}

// envelope is the response shape the mobile clients already consume.
type envelope struct {
	Status  int      `json:"status"`
	Message []string `json:"message"`
	Data    any      `json:"data,omitempty"`
}

// quizResponse strips option correctness from the payload; grading happens
// server-side only.
type quizResponse struct {
	LocationID string         `json:"locationId"`
	SectionID  string         `json:"sectionId,omitempty"`
	Default    bool           `json:"isDefaultScope"`
	Questions  []questionView `json:"questions"`
}

type questionView struct {
	ID      string       `json:"id"`
	Prompt  string       `json:"question"`
	Options []optionView `json:"options"`
}

type optionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func (h *Handler) getAssessment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, envelope{Status: http.StatusMethodNotAllowed, Message: []string{"method not allowed"}})
		return
	}
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Status: http.StatusBadRequest, Message: []string{"X-User-Id header is required"}})
		return
	}
	lon, lonErr := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if lonErr != nil || latErr != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Status: http.StatusBadRequest, Message: []string{"lon and lat query parameters are required"}})
		return
	}

	quiz, err := h.assessments.GetQuiz(r.Context(), userID, domain.Coordinate{Lon: lon, Lat: lat}, r.URL.Query().Get("sectionId"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	view := quizResponse{
		LocationID: quiz.LocationID,
		SectionID:  quiz.SectionID,
		Default:    quiz.Default,
	}
	for _, q := range quiz.Questions {
		qv := questionView{ID: q.ID, Prompt: q.Prompt}
		for _, opt := range q.Options {
			qv.Options = append(qv.Options, optionView{ID: opt.ID, Text: opt.Text})
		}
		view.Questions = append(view.Questions, qv)
	}
	writeJSON(w, http.StatusOK, envelope{Status: http.StatusOK, Message: []string{"questions fetched successfully"}, Data: view})
}

type attemptRequest struct {
	LocationID string          `json:"locationId"`
	SectionID  string          `json:"sectionId"`
	Answers    []domain.Answer `json:"answers"`
	Duration   int             `json:"duration"`
}

func (h *Handler) submitAttempt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, envelope{Status: http.StatusMethodNotAllowed, Message: []string{"method not allowed"}})
		return
	}
	userID := r.Header.Get("X-User-Id")
	var req attemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Status: http.StatusBadRequest, Message: []string{"invalid request body"}})
		return
	}

	result, err := h.assessments.SubmitAttempt(r.Context(), app.Submission{
		UserID:          userID,
		LocationID:      req.LocationID,
		SectionID:       req.SectionID,
		Answers:         req.Answers,
		DurationSeconds: req.Duration,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Status: http.StatusOK, Message: []string{"attempt submitted successfully"}, Data: result})
}

type progressRequest struct {
	LocationID     string `json:"locationId"`
	SectionID      string `json:"sectionId"`
	VideoID        string `json:"videoId"`
	WatchedSeconds int    `json:"watchedSeconds"`
}

func (h *Handler) updateProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, envelope{Status: http.StatusMethodNotAllowed, Message: []string{"method not allowed"}})
		return
	}
	userID := r.Header.Get("X-User-Id")
	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Status: http.StatusBadRequest, Message: []string{"invalid request body"}})
		return
	}

	ack, err := h.progress.UpdateVideoProgress(r.Context(), userID, req.LocationID, req.SectionID, req.VideoID, req.WatchedSeconds)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Status: http.StatusOK, Message: []string{"progress updated"}, Data: ack})
}

func (h *Handler) progressOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, envelope{Status: http.StatusMethodNotAllowed, Message: []string{"method not allowed"}})
		return
	}
	userID := r.Header.Get("X-User-Id")
	locationID := r.URL.Query().Get("locationId")
	if userID == "" || locationID == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Status: http.StatusBadRequest, Message: []string{"X-User-Id and locationId are required"}})
		return
	}

	overview, err := h.progress.Overview(r.Context(), userID, locationID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Status: http.StatusOK, Message: []string{"progress fetched successfully"}, Data: overview})
}

type enrollRequest struct {
	LocationID string `json:"locationId"`
}

func (h *Handler) enroll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, envelope{Status: http.StatusMethodNotAllowed, Message: []string{"method not allowed"}})
		return
	}
	userID := r.Header.Get("X-User-Id")
	var req enrollRequest
	if r.Body != nil {
		// Body is optional; an empty locationId resolves to the default scope.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	cert, err := h.certificates.Enroll(r.Context(), userID, req.LocationID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Status: http.StatusOK, Message: []string{"certificate generated successfully"}, Data: cert})
}

func (h *Handler) listCertificates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, envelope{Status: http.StatusMethodNotAllowed, Message: []string{"method not allowed"}})
		return
	}
	certs, err := h.certificates.List(r.Context(), r.Header.Get("X-User-Id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Status: http.StatusOK, Message: []string{"certificates fetched successfully"}, Data: certs})
}

// writeError maps domain error kinds to HTTP statuses. Internal details
// never cross the boundary; clients see the message list only.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, envelope{Status: http.StatusBadRequest, Message: ve.Messages})
	case errors.Is(err, domain.ErrAttemptLimitExceeded):
		writeJSON(w, http.StatusBadRequest, envelope{Status: http.StatusBadRequest, Message: []string{"You have reached today's 3 attempt limit"}})
	case errors.Is(err, domain.ErrAlreadyPassed):
		writeJSON(w, http.StatusForbidden, envelope{Status: http.StatusForbidden, Message: []string{"You have already passed this assessment."}})
	case errors.Is(err, domain.ErrNotEligible):
		writeJSON(w, http.StatusForbidden, envelope{Status: http.StatusForbidden, Message: []string{"Complete all sections before enrolling for a certificate."}})
	case errors.Is(err, domain.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, envelope{Status: http.StatusNotFound, Message: []string{"User not found."}})
	case errors.Is(err, domain.ErrLocationNotFound):
		writeJSON(w, http.StatusNotFound, envelope{Status: http.StatusNotFound, Message: []string{"Location not found."}})
	case errors.Is(err, domain.ErrVideoNotFound):
		writeJSON(w, http.StatusNotFound, envelope{Status: http.StatusNotFound, Message: []string{"Video not found."}})
	case errors.Is(err, domain.ErrCertificateNotFound):
		writeJSON(w, http.StatusNotFound, envelope{Status: http.StatusNotFound, Message: []string{"Certificate not found."}})
	case errors.Is(err, domain.ErrNotConfigured):
		writeJSON(w, http.StatusNotFound, envelope{Status: http.StatusNotFound, Message: []string{"SuperAdmin location not found"}})
	case errors.Is(err, domain.ErrNoQuestionsAvailable):
		writeJSON(w, http.StatusNotFound, envelope{Status: http.StatusNotFound, Message: []string{"No questions available for this location"}})
	case errors.Is(err, domain.ErrConcurrencyConflict):
		writeJSON(w, http.StatusConflict, envelope{Status: http.StatusConflict, Message: []string{"Concurrent update conflict, please retry"}})
	case errors.Is(err, domain.ErrCertificateRenderFailed):
		writeJSON(w, http.StatusBadGateway, envelope{Status: http.StatusBadGateway, Message: []string{"Certificate rendering failed, please retry"}})
	default:
		h.log.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, envelope{Status: http.StatusInternalServerError, Message: []string{"internal server error"}})
	}
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
