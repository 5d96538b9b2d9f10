package testutil

import (
	"net/http"
	"time"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/requestcontext"
)

// WithBearer sets the Authorization header the operator middleware reads.
func WithBearer(req *http.Request, token string) *http.Request {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// WithOperator puts operator in the request context, as the operator
// middleware would after validating a token.
func WithOperator(req *http.Request, operator string) *http.Request {
	return req.WithContext(requestcontext.WithOperator(req.Context(), operator))
}

// WithRequestTime pins the request clock so finalization timestamps are
// predictable.
func WithRequestTime(req *http.Request, at time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), at))
}
