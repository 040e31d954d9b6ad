package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/lester-loyalty/internal/domain/agent"
	"github.com/xenking/lester-loyalty/internal/domain/auth"
	"github.com/xenking/lester-loyalty/internal/domain/ledger"
	"github.com/xenking/lester-loyalty/internal/domain/reward"
	"github.com/xenking/lester-loyalty/internal/storage"
	"github.com/xenking/lester-loyalty/internal/storage/memory"
	"github.com/xenking/lester-loyalty/pkg/httpmiddleware"
)

const (
	testPepper   = "test-pepper"
	testAdminKey = "admin-secret"
)

// --- Helpers ---

type testEnv struct {
	t      *testing.T
	router http.Handler
	agent  *agent.Agent
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := storage.NewStore(memory.New())
	agentSvc := agent.NewService(store)
	a, err := agentSvc.Create(context.Background(), agent.Input{AgentNumber: "1024", FirstName: "María", LastName: "Pérez"})
	require.NoError(t, err)

	sec := NewSecurity(agentSvc, []byte(testPepper), auth.HashKey([]byte(testPepper), testAdminKey))
	h, err := NewHandler(noop.NewMeterProvider(), ledger.NewService(store), agentSvc, reward.NewService(store), sec)
	require.NoError(t, err)

	return &testEnv{t: t, router: h.Routes(), agent: a}
}

type credential func(*http.Request)

func asAdmin(r *http.Request) { r.Header.Set(HeaderAPIKey, testAdminKey) }

func asAgent(number, lastName string) credential {
	return func(r *http.Request) { r.SetBasicAuth(number, lastName) }
}

func anonymous(*http.Request) {}

func (e *testEnv) do(cred credential, method, path string, body any) *httptest.ResponseRecorder {
	e.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	cred(req)

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), w.Body.String())
	return v
}

func (e *testEnv) registerCustomer(name string) ledger.Customer {
	e.t.Helper()
	w := e.do(asAdmin, http.MethodPost, "/api/customers", map[string]string{"name": name, "agentName": "María Pérez"})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	return decodeBody[ledger.Customer](e.t, w)
}

func (e *testEnv) submit(cred credential, customerID string, amount string) ledger.Order {
	e.t.Helper()
	w := e.do(cred, http.MethodPost, "/api/orders", map[string]any{
		"customerId": customerID,
		"folio":      "F-100",
		"date":       "2025-05-30",
		"amount":     amount,
		"documents":  map[string]string{"payment": "pago.pdf", "originalOrder": "pedido.pdf"},
	})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	return decodeBody[ledger.Order](e.t, w)
}

// --- Tests ---

func TestAuthentication(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		cred credential
		want int
	}{
		{name: "anonymous", cred: anonymous, want: http.StatusUnauthorized},
		{name: "wrong admin key", cred: func(r *http.Request) { r.Header.Set(HeaderAPIKey, "nope") }, want: http.StatusUnauthorized},
		{name: "wrong last name", cred: asAgent("1024", "Ruiz"), want: http.StatusUnauthorized},
		{name: "agent", cred: asAgent("1024", "pérez"), want: http.StatusOK},
		{name: "admin", cred: asAdmin, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(tt.cred, http.MethodGet, "/api/orders", nil)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusUnauthorized {
				body := decodeBody[errorResponse](t, w)
				assert.Equal(t, http.StatusUnauthorized, body.Code)
			}
		})
	}
}

func TestRoleGuards(t *testing.T) {
	env := newTestEnv(t)
	agentCred := asAgent("1024", "Pérez")

	assert.Equal(t, http.StatusForbidden, env.do(agentCred, http.MethodPost, "/api/orders/x/approve", nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(agentCred, http.MethodPut, "/api/settings", nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(agentCred, http.MethodGet, "/api/agents", nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(asAdmin, http.MethodPost, "/api/orders", map[string]any{}).Code)
}

func TestApprovalFlow(t *testing.T) {
	env := newTestEnv(t)
	agentCred := asAgent("1024", "Pérez")

	c := env.registerCustomer("Abarrotes Sol")
	assert.Equal(t, ledger.TierNew, c.Level)
	assert.Zero(t, c.Points)

	o := env.submit(agentCred, c.ID, "100000")
	assert.Equal(t, ledger.StatusPending, o.Status)
	assert.Equal(t, env.agent.ID, o.AgentID)
	assert.Equal(t, "Abarrotes Sol", o.CustomerName)

	w := env.do(asAdmin, http.MethodGet, "/api/orders?status=pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody[[]ledger.Order](t, w), 1)

	w = env.do(asAdmin, http.MethodPost, "/api/orders/"+o.ID+"/approve", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decodeBody[struct {
		Order    ledger.Order    `json:"order"`
		Customer ledger.Customer `json:"customer"`
	}](t, w)
	assert.Equal(t, ledger.StatusApproved, res.Order.Status)
	require.NotNil(t, res.Order.PointsAwarded)
	assert.EqualValues(t, 1000, *res.Order.PointsAwarded)
	assert.Equal(t, "admin", res.Order.DecidedBy)
	assert.EqualValues(t, 1000, res.Customer.Points)
	assert.Equal(t, ledger.TierBronze, res.Customer.Level)

	w = env.do(asAdmin, http.MethodPost, "/api/orders/"+o.ID+"/approve", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(agentCred, http.MethodGet, "/api/customers/"+c.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeBody[ledger.Customer](t, w)
	assert.EqualValues(t, 1000, got.Points)
}

func TestRejectFlow(t *testing.T) {
	env := newTestEnv(t)
	c := env.registerCustomer("Ferretería López")
	o := env.submit(asAgent("1024", "Pérez"), c.ID, "5000")

	w := env.do(asAdmin, http.MethodPost, "/api/orders/"+o.ID+"/reject", map[string]string{"reason": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(asAdmin, http.MethodPost, "/api/orders/"+o.ID+"/reject", map[string]string{"reason": "Comprobante ilegible"})
	require.Equal(t, http.StatusOK, w.Code)
	rejected := decodeBody[ledger.Order](t, w)
	assert.Equal(t, ledger.StatusRejected, rejected.Status)
	assert.Nil(t, rejected.PointsAwarded)

	w = env.do(asAdmin, http.MethodPost, "/api/orders/"+o.ID+"/approve", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(asAdmin, http.MethodPost, "/api/orders/missing/approve", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApprove_OversizedAmount(t *testing.T) {
	env := newTestEnv(t)
	c := env.registerCustomer("Abarrotes Sol")
	o := env.submit(asAgent("1024", "Pérez"), c.ID, "100000000000000000000000000")

	w := env.do(asAdmin, http.MethodPost, "/api/orders/"+o.ID+"/approve", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = env.do(asAdmin, http.MethodGet, "/api/orders/"+o.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ledger.StatusPending, decodeBody[ledger.Order](t, w).Status)

	w = env.do(asAdmin, http.MethodGet, "/api/customers/"+c.ID, nil)
	assert.Zero(t, decodeBody[ledger.Customer](t, w).Points)
}

func TestSubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	agentCred := asAgent("1024", "Pérez")

	tests := []struct {
		name string
		body any
	}{
		{name: "missing documents", body: map[string]any{"customerId": "c-1", "amount": "100"}},
		{name: "zero amount", body: map[string]any{
			"customerId": "c-1", "amount": "0",
			"documents": map[string]string{"payment": "p", "originalOrder": "o"},
		}},
		{name: "unknown field", body: map[string]any{"customerId": "c-1", "points": 5000}},
		{name: "malformed json", body: `{"customerId":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(agentCred, http.MethodPost, "/api/orders", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestAgentSeesOwnOrdersOnly(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(asAdmin, http.MethodPost, "/api/agents", map[string]string{"agentNumber": "2048", "firstName": "Juan", "lastName": "Ruiz"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	c := env.registerCustomer("Abarrotes Sol")
	o := env.submit(asAgent("1024", "Pérez"), c.ID, "100")

	other := asAgent("2048", "Ruiz")
	w = env.do(other, http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody[[]ledger.Order](t, w))

	assert.Equal(t, http.StatusNotFound, env.do(other, http.MethodGet, "/api/orders/"+o.ID, nil).Code)
	assert.Equal(t, http.StatusOK, env.do(asAgent("1024", "Pérez"), http.MethodGet, "/api/orders/"+o.ID, nil).Code)
}

func TestSettingsAndRecalculate(t *testing.T) {
	env := newTestEnv(t)
	c := env.registerCustomer("Abarrotes Sol")
	o := env.submit(asAgent("1024", "Pérez"), c.ID, "300000")
	require.Equal(t, http.StatusOK, env.do(asAdmin, http.MethodPost, "/api/orders/"+o.ID+"/approve", nil).Code)

	w := env.do(asAdmin, http.MethodPut, "/api/settings", map[string]any{
		"levels":     []map[string]any{{"name": "Oro", "minPoints": 5000}},
		"pointRatio": "100",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(asAdmin, http.MethodPut, "/api/settings", map[string]any{
		"levels": []map[string]any{
			{"name": "Oro", "minPoints": 5000},
			{"name": "Plata", "minPoints": 3500},
			{"name": "Bronce", "minPoints": 1000},
			{"name": "Nuevo", "minPoints": 0},
		},
		"pointRatio": "50",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	settings := decodeBody[settingsBody](t, w)
	assert.Equal(t, "50", settings.PointRatio.String())

	w = env.do(asAdmin, http.MethodGet, "/api/customers/"+c.ID, nil)
	assert.Equal(t, ledger.TierSilver, decodeBody[ledger.Customer](t, w).Level)

	w = env.do(asAdmin, http.MethodPost, "/api/levels/recalculate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	customers := decodeBody[[]ledger.Customer](t, w)
	require.Len(t, customers, 1)
	assert.Equal(t, ledger.TierBronze, customers[0].Level)
	assert.EqualValues(t, 3000, customers[0].Points)
}

func TestRankingAndRewards(t *testing.T) {
	env := newTestEnv(t)
	low := env.registerCustomer("Tienda Uno")
	high := env.registerCustomer("Tienda Dos")
	o := env.submit(asAgent("1024", "Pérez"), high.ID, "60000")
	require.Equal(t, http.StatusOK, env.do(asAdmin, http.MethodPost, "/api/orders/"+o.ID+"/approve", nil).Code)

	w := env.do(asAdmin, http.MethodGet, "/api/customers?agent=mar%C3%ADa", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ranked := decodeBody[[]ledger.Customer](t, w)
	require.Len(t, ranked, 2)
	assert.Equal(t, high.ID, ranked[0].ID)
	assert.Equal(t, low.ID, ranked[1].ID)

	for _, rw := range []map[string]any{
		{"pointsRequired": 500, "description": "Gorra", "isActive": true},
		{"pointsRequired": 1000, "description": "Termo", "isActive": true},
		{"pointsRequired": 100, "description": "Llavero", "isActive": false},
	} {
		require.Equal(t, http.StatusCreated, env.do(asAdmin, http.MethodPost, "/api/rewards", rw).Code)
	}

	w = env.do(asAgent("1024", "Pérez"), http.MethodGet, "/api/customers/"+high.ID+"/rewards", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rewards := decodeBody[[]reward.Reward](t, w)
	require.Len(t, rewards, 1)
	assert.Equal(t, "Gorra", rewards[0].Description)
}

func TestNotFoundRoute(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(asAdmin, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, http.StatusNotFound, decodeBody[errorResponse](t, w).Code)
}

func TestRateLimitKey(t *testing.T) {
	admin := httptest.NewRequest(http.MethodGet, "/", nil)
	admin.RemoteAddr = "198.51.100.1:4000"
	asAdmin(admin)
	assert.Equal(t, "admin:198.51.100.1", RateLimitKey(admin))

	ag := httptest.NewRequest(http.MethodGet, "/", nil)
	ag.RemoteAddr = "198.51.100.2:4000"
	ag.SetBasicAuth("1024", "x")
	assert.Equal(t, "agent:1024:198.51.100.2", RateLimitKey(ag))

	anon := httptest.NewRequest(http.MethodGet, "/", nil)
	anon.RemoteAddr = "203.0.113.9:1234"
	assert.Equal(t, "ip:203.0.113.9", RateLimitKey(anon))
}

func TestRateLimit_ForgedCredentialsDoNotThrottleOthers(t *testing.T) {
	env := newTestEnv(t)
	limited := httpmiddleware.Wrap(env.router, httpmiddleware.RateLimit(httpmiddleware.RateLimitConfig{
		Max:     3,
		Window:  time.Minute,
		KeyFunc: RateLimitKey,
	}))

	send := func(remoteAddr string, cred credential) int {
		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		req.RemoteAddr = remoteAddr
		cred(req)
		w := httptest.NewRecorder()
		limited.ServeHTTP(w, req)
		return w.Code
	}
	forgedKey := func(r *http.Request) { r.Header.Set(HeaderAPIKey, "forged") }

	for range 3 {
		assert.Equal(t, http.StatusUnauthorized, send("203.0.113.9:5000", forgedKey))
		assert.Equal(t, http.StatusUnauthorized, send("203.0.113.9:5000", asAgent("1024", "wrong")))
	}
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.9:5000", forgedKey))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.9:5000", asAgent("1024", "wrong")))

	assert.Equal(t, http.StatusOK, send("198.51.100.1:4000", asAdmin))
	assert.Equal(t, http.StatusOK, send("198.51.100.2:4000", asAgent("1024", "Pérez")))
}
