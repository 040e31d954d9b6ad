package handler

import (
	"context"
	"net/http"
	"slices"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/lester-loyalty/internal/domain/agent"
	"github.com/xenking/lester-loyalty/internal/domain/auth"
	"github.com/xenking/lester-loyalty/pkg/httpmiddleware"
)

// HeaderAPIKey carries the administrator access key.
const HeaderAPIKey = "api_key"

// AgentAuthenticator resolves an agent from its login credentials.
type AgentAuthenticator interface {
	Authenticate(ctx context.Context, number, lastName string) (*agent.Agent, error)
}

// Security authenticates API requests. Administrators present the access key
// in the api_key header; it is checked against a stored HMAC-SHA256 hash.
// Agents use HTTP Basic auth with their agent number and last name.
type Security struct {
	agents       AgentAuthenticator
	pepper       []byte
	adminKeyHash string
}

// NewSecurity creates a Security. An empty adminKeyHash disables admin access.
func NewSecurity(agents AgentAuthenticator, pepper []byte, adminKeyHash string) *Security {
	return &Security{agents: agents, pepper: pepper, adminKeyHash: adminKeyHash}
}

func (s *Security) principal(r *http.Request) (auth.Principal, error) {
	if key := r.Header.Get(HeaderAPIKey); key != "" {
		if s.adminKeyHash == "" || !auth.VerifyKey(s.pepper, key, s.adminKeyHash) {
			return auth.Principal{}, errUnauthorized
		}
		return auth.Principal{ID: "admin", Name: "Administrador", Role: auth.RoleAdmin}, nil
	}

	number, lastName, ok := r.BasicAuth()
	if !ok {
		return auth.Principal{}, errUnauthorized
	}
	a, err := s.agents.Authenticate(r.Context(), number, lastName)
	if err != nil {
		if errors.Is(err, agent.ErrInvalidCredentials) {
			return auth.Principal{}, errUnauthorized
		}
		return auth.Principal{}, err
	}
	return auth.Principal{ID: a.ID, Name: a.FullName(), Role: auth.RoleAgent}, nil
}

var errUnauthorized = errors.New("unauthorized")

// Authenticate rejects anonymous requests with 401 and stores the caller's
// principal in the request context.
func (s *Security) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := s.principal(r)
		if errors.Is(err, errUnauthorized) {
			w.Header().Set("WWW-Authenticate", `Basic realm="ledger"`)
			writeJSON(w, http.StatusUnauthorized, errorResponse{Code: http.StatusUnauthorized, Message: "unauthorized"})
			return
		}
		if err != nil {
			writeError(w, r, errors.Wrap(err, "authenticate"))
			return
		}

		trace.SpanFromContext(r.Context()).SetAttributes(
			attribute.String("ledger.principal.id", p.ID),
			attribute.String("ledger.principal.role", string(p.Role)),
		)
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
	})
}

// RequireRole answers 403 unless the authenticated principal holds one of
// roles.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.FromContext(r.Context())
			if !ok || !slices.Contains(roles, p.Role) {
				writeJSON(w, http.StatusForbidden, errorResponse{Code: http.StatusForbidden, Message: "forbidden"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitKey buckets requests by client IP, split by the kind of
// credential presented. Credentials are not verified at this point, so a
// forged api_key or agent number only ever drains the sender's own bucket.
func RateLimitKey(r *http.Request) string {
	ip := httpmiddleware.ClientIP(r)
	if r.Header.Get(HeaderAPIKey) != "" {
		return "admin:" + ip
	}
	if number, _, ok := r.BasicAuth(); ok && number != "" {
		return "agent:" + number + ":" + ip
	}
	return "ip:" + ip
}
