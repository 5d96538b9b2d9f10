package engine

import (
	"net/http"
	"strings"
	"time"

	dErrors "github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/domain-errors"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/httputil"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/secrets"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/requestcontext"
)

type loginRequest struct {
	Operator string `json:"operator"`
	Secret   string `json:"secret"`
}

func (r *loginRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Operator = strings.TrimSpace(r.Operator)
	if r.Operator == "" {
		return dErrors.New(dErrors.CodeValidation, "operator is required")
	}
	if r.Secret == "" {
		return dErrors.New(dErrors.CodeValidation, "secret is required")
	}
	return nil
}

type loginResponse struct {
	Token     string    `json:"token"`
	Operator  string    `json:"operator"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleLogin exchanges operator credentials from the configuration for a
// bearer token.
func (e *Engine) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[loginRequest](w, r, e.Logger, ctx, requestID)
	if !ok {
		return
	}

	hash, known := e.Config.Server.Operators[req.Operator]
	if !known {
		e.Logger.WarnContext(ctx, "login for unknown operator", "operator", req.Operator, "request_id", requestID)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid operator credentials"))
		return
	}
	if err := secrets.Verify(req.Secret, hash); err != nil {
		e.Logger.WarnContext(ctx, "operator login failed", "operator", req.Operator, "request_id", requestID, "error", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid operator credentials"))
		return
	}

	ttl := e.Config.Server.TokenTTL
	token, err := e.Tokens.GenerateOperatorToken(req.Operator, ttl)
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to issue operator token", "operator", req.Operator, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, loginResponse{
		Token:     token,
		Operator:  req.Operator,
		ExpiresAt: time.Now().Add(ttl).UTC(),
	})
}
