package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-recovery-api/internal/application/recovery"
	"github.com/go-recovery-api/internal/domain"
	"github.com/go-recovery-api/internal/pkg/token"
	"github.com/go-recovery-api/internal/pkg/validate"
)

// genericRejection is the only failure message the verify and complete steps
// ever emit. The real reason stays in the logs.
const genericRejection = "invalid or expired code"

// Issuer, Verifier and Coordinator are the slices of the recovery core this
// handler consumes.
type Issuer interface {
	Issue(ctx context.Context, address, purpose string) (*recovery.IssuedPasscode, error)
}

type Verifier interface {
	Verify(ctx context.Context, address, code, purpose, token string) (*domain.Passcode, error)
}

type Coordinator interface {
	CompleteRecovery(ctx context.Context, address, newSecret, token string) error
}

type RequestRecoveryRequest struct {
	Address string `json:"address" validate:"required,email"`
}

type VerifyCodeRequest struct {
	Token   string `json:"token" validate:"required"`
	Address string `json:"address" validate:"required,email"`
	Code    string `json:"code" validate:"required,numeric"`
}

type CompleteRecoveryRequest struct {
	Token                   string `json:"token" validate:"required"`
	Address                 string `json:"address" validate:"required,email"`
	NewPassword             string `json:"new_password" validate:"required,min=8,max=72"`
	NewPasswordConfirmation string `json:"new_password_confirmation" validate:"required,eqfield=NewPassword"`
}

// RecoveryHandler handles the password-recovery flow endpoints.
type RecoveryHandler struct {
	issuer      Issuer
	verifier    Verifier
	coordinator Coordinator
}

func NewRecoveryHandler(issuer Issuer, verifier Verifier, coordinator Coordinator) *RecoveryHandler {
	return &RecoveryHandler{issuer: issuer, verifier: verifier, coordinator: coordinator}
}

func (h *RecoveryHandler) Action(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "request":
		h.request(w, r)
	case "verify":
		h.verify(w, r)
	case "complete":
		h.complete(w, r)
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}

// request always answers "accepted" for well-formed input, so the response
// does not reveal whether the address has an account or is being throttled.
// Those outcomes are logged with their real cause instead.
func (h *RecoveryHandler) request(w http.ResponseWriter, r *http.Request) {
	var req RequestRecoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	issued, err := h.issuer.Issue(r.Context(), req.Address, domain.PurposePasswordReset)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrRateLimited) {
			slog.Warn("passcode issuance suppressed", "cause", err)
			writeJSON(w, http.StatusOK, acceptedEnvelope())
			return
		}
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RecoveryEnvelope{Message: "accepted", Token: issued.Token})
}

func (h *RecoveryHandler) verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	_, err := h.verifier.Verify(r.Context(), req.Address, req.Code, domain.PurposePasswordReset, req.Token)
	if err != nil {
		if reason := domain.ReasonOf(err); reason != "" {
			slog.Warn("passcode verification rejected", "reason", reason)
			writeError(w, http.StatusUnauthorized, genericRejection)
			return
		}
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "code accepted"})
}

func (h *RecoveryHandler) complete(w http.ResponseWriter, r *http.Request) {
	var req CompleteRecoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.coordinator.CompleteRecovery(r.Context(), req.Address, req.NewPassword, req.Token); err != nil {
		if reason := domain.ReasonOf(err); reason != "" {
			slog.Warn("recovery completion rejected", "reason", reason)
			writeError(w, http.StatusUnauthorized, genericRejection)
			return
		}
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password updated"})
}

// acceptedEnvelope carries a decoy token so suppressed issuances are
// indistinguishable from real ones on the wire.
func acceptedEnvelope() RecoveryEnvelope {
	decoy, err := token.New()
	if err != nil {
		decoy = ""
	}
	return RecoveryEnvelope{Message: "accepted", Token: decoy}
}
