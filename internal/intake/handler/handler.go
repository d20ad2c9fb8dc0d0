package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "chainspace-intake/internal/common/errors"
	"chainspace-intake/internal/common/logger"
	"chainspace-intake/internal/common/validation"
	"chainspace-intake/internal/intake/form"
	"chainspace-intake/internal/intake/notify"
	"chainspace-intake/internal/intake/wizard"
	"chainspace-intake/internal/models"
	"chainspace-intake/pkg/catalog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxPatchBytes = 1 << 20

// Handler exposes the application wizard over HTTP, one wizard per session.
type Handler struct {
	sessions    *SessionManager
	catalog     *catalog.Catalog
	patchSchema *validation.Validator
	logger      logger.Logger
	timeout     time.Duration
}

func New(sessions *SessionManager, cat *catalog.Catalog, log logger.Logger) (*Handler, error) {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	schema, err := validation.Compile(cat.DraftSchema())
	if err != nil {
		return nil, fmt.Errorf("compile draft schema: %w", err)
	}
	return &Handler{
		sessions:    sessions,
		catalog:     cat,
		patchSchema: schema,
		logger:      log.WithFields(map[string]interface{}{"component": "intake-api"}),
		timeout:     30 * time.Second,
	}, nil
}

// Register mounts the intake routes under /api/v1.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(middleware.Timeout(h.timeout))

		r.Get("/form", h.handleCatalog)
		r.Post("/sessions", h.handleOpen)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", h.handleState)
			r.Delete("/", h.handleClose)
			r.Patch("/draft", h.handlePatchDraft)
			r.Post("/next", h.handleNext)
			r.Post("/previous", h.handlePrevious)
			r.Post("/submit", h.handleSubmit)
			r.Get("/receipt", h.handleReceipt)
		})
	})
}

type openRequest struct {
	SessionID string `json:"sessionId"`
}

type sessionResponse struct {
	Session *models.Session `json:"session"`
	State   wizard.State    `json:"state"`
}

type submitResponse struct {
	ApplicationID string       `json:"applicationId"`
	SubmittedAt   time.Time    `json:"submittedAt"`
	Toast         notify.Toast `json:"toast"`
}

type errorResponse struct {
	Error       *apperrors.StandardError `json:"error"`
	FieldErrors map[form.Field]string    `json:"fieldErrors,omitempty"`
	Toast       *notify.Toast            `json:"toast,omitempty"`
	State       *wizard.State            `json:"state,omitempty"`
}

func (h *Handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog)
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, maxPatchBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			h.writeError(w, r, apperrors.NewInvalidPayloadError(err.Error()), nil)
			return
		}
	}

	session, state, err := h.sessions.Open(r.Context(), req.SessionID)
	if err != nil {
		h.writeError(w, r, apperrors.NewSessionNotFoundError(req.SessionID), nil)
		return
	}

	status := http.StatusCreated
	if req.SessionID != "" {
		status = http.StatusOK
	}
	writeJSON(w, status, sessionResponse{Session: session, State: state})
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	session, wz, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: session, State: wz.State()})
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := h.sessions.Close(id); err != nil {
		h.writeError(w, r, apperrors.NewSessionNotFoundError(id), nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePatchDraft(w http.ResponseWriter, r *http.Request) {
	session, wz, ok := h.lookup(w, r)
	if !ok {
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxPatchBytes))
	if err != nil {
		h.writeError(w, r, apperrors.NewInvalidPayloadError(err.Error()), nil)
		return
	}

	result, err := h.patchSchema.Validate(raw)
	if err != nil {
		h.writeError(w, r, apperrors.NewInvalidPayloadError(err.Error()), nil)
		return
	}
	if !result.Valid {
		h.writeError(w, r, apperrors.NewInvalidPayloadError(strings.Join(result.GetErrorMessages(), "; ")), nil)
		return
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.writeError(w, r, apperrors.NewInvalidPayloadError(err.Error()), nil)
		return
	}
	values := make(map[form.Field]interface{}, len(payload))
	for k, v := range payload {
		values[form.Field(k)] = v
	}

	if err := wz.Apply(r.Context(), values); err != nil {
		if errors.Is(err, form.ErrUnknownField) || errors.Is(err, form.ErrWrongValueType) {
			err = apperrors.NewInvalidPayloadError(err.Error())
		}
		h.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: session, State: wz.State()})
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	session, wz, ok := h.lookup(w, r)
	if !ok {
		return
	}
	state, err := wz.Advance(r.Context())
	if err != nil {
		h.writeError(w, r, err, &errorResponse{State: &state})
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: session, State: state})
}

func (h *Handler) handlePrevious(w http.ResponseWriter, r *http.Request) {
	session, wz, ok := h.lookup(w, r)
	if !ok {
		return
	}
	state, err := wz.Retreat(r.Context())
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: session, State: state})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	_, wz, ok := h.lookup(w, r)
	if !ok {
		return
	}

	// a started insert runs to completion even if the client goes away
	outcome, err := wz.Submit(context.WithoutCancel(r.Context()))
	if err != nil {
		extra := &errorResponse{}
		if errors.Is(err, wizard.ErrSubmissionFailed) {
			toast := notify.Failure()
			extra.Toast = &toast
		}
		h.writeError(w, r, err, extra)
		return
	}

	writeJSON(w, http.StatusCreated, submitResponse{
		ApplicationID: outcome.ApplicationID,
		SubmittedAt:   outcome.SubmittedAt,
		Toast:         outcome.Toast,
	})
}

func (h *Handler) handleReceipt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	receipt, err := h.sessions.Receipt(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			err = apperrors.NewSessionNotFoundError(id)
		}
		h.writeError(w, r, err, nil)
		return
	}
	if receipt == nil {
		h.writeError(w, r, apperrors.NewReceiptNotFoundError(id), nil)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*models.Session, *wizard.Wizard, bool) {
	id := chi.URLParam(r, "sessionID")
	session, wz, err := h.sessions.Get(id)
	if err != nil {
		h.writeError(w, r, apperrors.NewSessionNotFoundError(id), nil)
		return nil, nil, false
	}
	return session, wz, true
}

// writeError renders err as a StandardError. Storage failure details are
// logged but never returned to the applicant.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, extra *errorResponse) {
	stdErr := apperrors.Normalize(err)
	status := apperrors.HTTPStatus(stdErr.Code)

	resp := errorResponse{}
	if extra != nil {
		resp = *extra
	}
	resp.Error = stdErr

	var verrs form.ValidationErrors
	if errors.As(err, &verrs) {
		resp.FieldErrors = verrs.ByField()
		stdErr.Details = ""
	}

	fields := map[string]interface{}{
		"requestId": middleware.GetReqID(r.Context()),
		"path":      r.URL.Path,
		"code":      stdErr.Code,
		"status":    status,
	}
	if status >= http.StatusInternalServerError {
		fields["error"] = err.Error()
		h.logger.Error("Request failed", fields)
		stdErr = sanitized(stdErr)
		resp.Error = stdErr
	} else {
		h.logger.Debug("Request rejected", fields)
	}

	writeJSON(w, status, resp)
}

func sanitized(e *apperrors.StandardError) *apperrors.StandardError {
	out := *e
	out.Details = ""
	out.Metadata = nil
	return &out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
