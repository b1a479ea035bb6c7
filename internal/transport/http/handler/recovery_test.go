package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-recovery-api/internal/application/recovery"
	"github.com/go-recovery-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockIssuer struct{ mock.Mock }

func (m *mockIssuer) Issue(ctx context.Context, address, purpose string) (*recovery.IssuedPasscode, error) {
	args := m.Called(ctx, address, purpose)
	if p, _ := args.Get(0).(*recovery.IssuedPasscode); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockVerifier struct{ mock.Mock }

func (m *mockVerifier) Verify(ctx context.Context, address, code, purpose, token string) (*domain.Passcode, error) {
	args := m.Called(ctx, address, code, purpose, token)
	if p, _ := args.Get(0).(*domain.Passcode); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockCoordinator struct{ mock.Mock }

func (m *mockCoordinator) CompleteRecovery(ctx context.Context, address, newSecret, token string) error {
	return m.Called(ctx, address, newSecret, token).Error(0)
}

// --- helpers ---

// actionReq builds a POST request routed at the given recovery action.
func actionReq(action string, body any) *http.Request {
	b, _ := json.Marshal(body)
	r := httptest.NewRequest(http.MethodPost, "/v1/recovery/"+action, bytes.NewReader(b))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("action", action)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func newHandler() (*RecoveryHandler, *mockIssuer, *mockVerifier, *mockCoordinator) {
	issuer := &mockIssuer{}
	verifier := &mockVerifier{}
	coordinator := &mockCoordinator{}
	return NewRecoveryHandler(issuer, verifier, coordinator), issuer, verifier, coordinator
}

// --- request tests ---

func TestRequest_InvalidBody(t *testing.T) {
	h, _, _, _ := newHandler()
	r := httptest.NewRequest(http.MethodPost, "/v1/recovery/request", bytes.NewBufferString("not-json"))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("action", "request")
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	rr := httptest.NewRecorder()
	h.Action(rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRequest_ValidationFailure(t *testing.T) {
	h, _, _, _ := newHandler()
	rr := httptest.NewRecorder()
	h.Action(rr, actionReq("request", RequestRecoveryRequest{Address: "not-an-email"}))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestRequest_HappyPath(t *testing.T) {
	h, issuer, _, _ := newHandler()
	issued := &recovery.IssuedPasscode{Token: "tok-1", Code: "482913", ExpiresAt: time.Now().Add(10 * time.Minute)}
	issuer.On("Issue", mock.Anything, "alice@example.com", domain.PurposePasswordReset).Return(issued, nil)

	rr := httptest.NewRecorder()
	h.Action(rr, actionReq("request", RequestRecoveryRequest{Address: "alice@example.com"}))

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp RecoveryEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "accepted", resp.Message)
	assert.Equal(t, "tok-1", resp.Token)
	// The plaintext code must never appear on the wire.
	assert.NotContains(t, rr.Body.String(), "482913")
	issuer.AssertExpectations(t)
}

func TestRequest_UnknownAddress_LooksAccepted(t *testing.T) {
	h, issuer, _, _ := newHandler()
	issuer.On("Issue", mock.Anything, "nobody@example.com", domain.PurposePasswordReset).
		Return(nil, domain.ErrNotFound)

	rr := httptest.NewRecorder()
	h.Action(rr, actionReq("request", RequestRecoveryRequest{Address: "nobody@example.com"}))

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp RecoveryEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "accepted", resp.Message)
	assert.NotEmpty(t, resp.Token, "suppressed issuance still carries a token")
	issuer.AssertExpectations(t)
}

func TestRequest_Throttled_LooksAccepted(t *testing.T) {
	h, issuer, _, _ := newHandler()
	issuer.On("Issue", mock.Anything, "alice@example.com", domain.PurposePasswordReset).
		Return(nil, domain.ErrRateLimited)

	rr := httptest.NewRecorder()
	h.Action(rr, actionReq("request", RequestRecoveryRequest{Address: "alice@example.com"}))

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp RecoveryEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "accepted", resp.Message)
	assert.NotEmpty(t, resp.Token)
}

// --- verify tests ---

func TestVerifyAction_ValidationFailure(t *testing.T) {
	h, _, _, _ := newHandler()
	rr := httptest.NewRecorder()
	// code must be numeric
	h.Action(rr, actionReq("verify", VerifyCodeRequest{Token: "tok-1", Address: "alice@example.com", Code: "abc123"}))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestVerifyAction_HappyPath(t *testing.T) {
	h, _, verifier, _ := newHandler()
	now := time.Now()
	verifier.On("Verify", mock.Anything, "alice@example.com", "482913", domain.PurposePasswordReset, "tok-1").
		Return(&domain.Passcode{Token: "tok-1", UsedAt: &now}, nil)

	rr := httptest.NewRecorder()
	h.Action(rr, actionReq("verify", VerifyCodeRequest{Token: "tok-1", Address: "alice@example.com", Code: "482913"}))

	assert.Equal(t, http.StatusOK, rr.Code)
	verifier.AssertExpectations(t)
}

func TestVerifyAction_RejectionsShareOneMessage(t *testing.T) {
	reasons := []domain.RejectReason{
		domain.ReasonInvalidToken,
		domain.ReasonMismatch,
		domain.ReasonAlreadyUsed,
		domain.ReasonExpired,
		domain.ReasonLockedOut,
		domain.ReasonWrongCode,
	}
	var bodies []string
	for _, reason := range reasons {
		h, _, verifier, _ := newHandler()
		verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, domain.Reject(reason))

		rr := httptest.NewRecorder()
		h.Action(rr, actionReq("verify", VerifyCodeRequest{Token: "tok-1", Address: "alice@example.com", Code: "000000"}))

		assert.Equal(t, http.StatusUnauthorized, rr.Code, "reason %s", reason)
		assert.NotContains(t, rr.Body.String(), string(reason))
		bodies = append(bodies, rr.Body.String())
	}
	for _, b := range bodies[1:] {
		assert.Equal(t, bodies[0], b, "rejection bodies must be indistinguishable")
	}
}

// --- complete tests ---

func TestComplete_PasswordConfirmationMismatch(t *testing.T) {
	h, _, _, _ := newHandler()
	rr := httptest.NewRecorder()
	h.Action(rr, actionReq("complete", CompleteRecoveryRequest{
		Token: "tok-1", Address: "alice@example.com",
		NewPassword: "NewSecret!23", NewPasswordConfirmation: "Different!23",
	}))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestComplete_NotVerified(t *testing.T) {
	h, _, _, coordinator := newHandler()
	coordinator.On("CompleteRecovery", mock.Anything, "alice@example.com", "NewSecret!23", "tok-1").
		Return(domain.Reject(domain.ReasonNotVerified))

	rr := httptest.NewRecorder()
	h.Action(rr, actionReq("complete", CompleteRecoveryRequest{
		Token: "tok-1", Address: "alice@example.com",
		NewPassword: "NewSecret!23", NewPasswordConfirmation: "NewSecret!23",
	}))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.NotContains(t, rr.Body.String(), string(domain.ReasonNotVerified))
	coordinator.AssertExpectations(t)
}

func TestComplete_HappyPath(t *testing.T) {
	h, _, _, coordinator := newHandler()
	coordinator.On("CompleteRecovery", mock.Anything, "alice@example.com", "NewSecret!23", "tok-1").Return(nil)

	rr := httptest.NewRecorder()
	h.Action(rr, actionReq("complete", CompleteRecoveryRequest{
		Token: "tok-1", Address: "alice@example.com",
		NewPassword: "NewSecret!23", NewPasswordConfirmation: "NewSecret!23",
	}))

	assert.Equal(t, http.StatusOK, rr.Code)
	coordinator.AssertExpectations(t)
}

func TestAction_Unknown(t *testing.T) {
	h, _, _, _ := newHandler()
	rr := httptest.NewRecorder()
	h.Action(rr, actionReq("teleport", RequestRecoveryRequest{Address: "alice@example.com"}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
