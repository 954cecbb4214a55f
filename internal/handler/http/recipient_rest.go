package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"notification-service/internal/domain"
	"notification-service/internal/repository"
	"notification-service/internal/xerrors"
)

type RecipientHandler struct {
	repo *repository.RecipientRepo
}

func NewRecipientHandler(repo *repository.RecipientRepo) *RecipientHandler {
	return &RecipientHandler{repo: repo}
}

type recipientResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toRecipientResponse(r *domain.AdminRecipient) recipientResponse {
	return recipientResponse{
		ID:        r.ID,
		Email:     r.Email,
		Name:      r.Name,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
	}
}

func (h *RecipientHandler) ListRecipients(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	recipients, err := h.repo.List(r.Context(), activeOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	responses := make([]recipientResponse, 0, len(recipients))
	for _, rec := range recipients {
		responses = append(responses, toRecipientResponse(rec))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"recipients": responses})
}

type upsertRecipientRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// UpsertRecipient creates or updates an admin recipient keyed on email. A new
// recipient defaults to active.
func (h *RecipientHandler) UpsertRecipient(w http.ResponseWriter, r *http.Request) {
	var req upsertRecipientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	rec, err := h.repo.Upsert(r.Context(), &domain.AdminRecipient{
		Email:    req.Email,
		Name:     req.Name,
		IsActive: isActive,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toRecipientResponse(rec))
}

// DeleteRecipient deactivates by default; ?hard=true removes the row.
func (h *RecipientHandler) DeleteRecipient(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	var err error
	if r.URL.Query().Get("hard") == "true" {
		err = h.repo.Delete(r.Context(), email)
	} else {
		err = h.repo.Deactivate(r.Context(), email)
	}
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			writeError(w, http.StatusNotFound, "recipient not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
