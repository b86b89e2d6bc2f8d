package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	"github.com/felixgeelhaar/orderflow/application"
	"github.com/felixgeelhaar/orderflow/domain/order"
	"github.com/felixgeelhaar/orderflow/infrastructure/storage/memory"
)

const (
	testSecret = "test-secret"
	testIssuer = "orderflow-test"
)

type fixture struct {
	server  *Server
	service *application.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	customers := memory.NewCustomerStore()
	customers.PutProfile(order.Profile{
		OwnerID:   "owner-1",
		KYCStatus: order.KYCVerified,
		Contact:   order.Contact{Name: "Asha", Email: "asha@example.com"},
	})
	service, err := application.NewService(
		application.WithStore(memory.NewRecordStore()),
		application.WithProfiles(customers),
		application.WithDocuments(customers),
		application.WithJournal(memory.NewJournal()),
	)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return &fixture{
		server:  NewServer(service, NewAuthenticator(testSecret, testIssuer)),
		service: service,
	}
}

func token(t *testing.T, sub, role, issuer, secret string, ttl time.Duration) string {
	t.Helper()

	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return signed
}

func bearer(t *testing.T, actor order.Actor) string {
	return token(t, actor.ID, string(actor.Role), testIssuer, testSecret, time.Hour)
}

func (f *fixture) do(t *testing.T, method, path, auth string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if auth != "" {
		req.Header.Set("Authorization", "Bearer "+auth)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) create(t *testing.T) *order.Record {
	t.Helper()

	rec, err := f.service.Create(context.Background(), "owner-1", order.ProductCurrencyExchange,
		decimal.NewFromInt(500), order.Owner("owner-1"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return rec
}

func TestAuthenticator_Rejects(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tests := []struct {
		name string
		auth string
	}{
		{"missing", ""},
		{"garbage", "not-a-jwt"},
		{"wrong secret", token(t, "a", "admin", testIssuer, "other", time.Hour)},
		{"wrong issuer", token(t, "a", "admin", "someone-else", testSecret, time.Hour)},
		{"expired", token(t, "a", "admin", testIssuer, testSecret, -time.Minute)},
		{"unknown role", token(t, "a", "auditor", testIssuer, testSecret, time.Hour)},
		{"no subject", token(t, "", "admin", testIssuer, testSecret, time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if rec := f.do(t, http.MethodGet, "/records/r-1", tt.auth, nil); rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestAuthenticator_Actor(t *testing.T) {
	t.Parallel()

	auth := NewAuthenticator(testSecret, "")
	actor, err := auth.Actor(token(t, "admin-7", "admin", "any-issuer", testSecret, time.Hour))
	if err != nil {
		t.Fatalf("Actor() error = %v", err)
	}
	if actor != order.Admin("admin-7") {
		t.Errorf("Actor() = %+v, want admin-7", actor)
	}
}

func TestServer_PublicRoutes(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if rec := f.do(t, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}

	rec := f.do(t, http.MethodGet, "/statuses/approved", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var info order.StatusInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Status != order.StatusApproved || info.Label == "" {
		t.Errorf("info = %+v", info)
	}
}

func TestServer_CreateRecord(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	owner := bearer(t, order.Owner("owner-1"))

	tests := []struct {
		name string
		auth string
		body any
		want int
	}{
		{"owner for self", owner, map[string]any{"product": "currency_exchange", "amount_usd": "1200.50"}, http.StatusCreated},
		{"admin for owner", bearer(t, order.Admin("admin-1")), map[string]any{"owner_id": "owner-2", "product": "travel_insurance", "amount_usd": 0}, http.StatusCreated},
		{"owner for another", owner, map[string]any{"owner_id": "owner-2", "product": "forex_card"}, http.StatusForbidden},
		{"unknown product", owner, map[string]any{"product": "gold_bars"}, http.StatusBadRequest},
		{"malformed", owner, "{", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if rec := f.do(t, http.MethodPost, "/records", tt.auth, tt.body); rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestServer_GetRecord(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	created := f.create(t)
	path := "/records/" + created.ID

	tests := []struct {
		name  string
		actor order.Actor
		path  string
		want  int
	}{
		{"owner", order.Owner("owner-1"), path, http.StatusOK},
		{"admin", order.Admin("admin-1"), path, http.StatusOK},
		{"other owner", order.Owner("owner-2"), path, http.StatusForbidden},
		{"missing", order.Admin("admin-1"), "/records/missing", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := f.do(t, http.MethodGet, tt.path, bearer(t, tt.actor), nil)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want != http.StatusOK {
				return
			}
			var got order.Record
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.ID != created.ID || got.Status != order.StatusDraft {
				t.Errorf("record = %+v", got)
			}
		})
	}
}

func TestServer_ListTargets(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	created := f.create(t)

	rec := f.do(t, http.MethodGet, "/records/"+created.ID+"/targets", bearer(t, order.Owner("owner-1")), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body targetsResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	found := false
	for _, s := range body.Targets {
		if s == order.StatusPendingDocuments {
			found = true
		}
	}
	if !found {
		t.Errorf("targets = %v, want pending_documents", body.Targets)
	}

	if rec := f.do(t, http.MethodGet, "/records/missing/targets", bearer(t, order.Admin("a")), nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing record status = %d, want 404", rec.Code)
	}
}

func TestServer_RequestTransition(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	created := f.create(t)
	path := "/records/" + created.ID + "/transitions"
	owner := bearer(t, order.Owner("owner-1"))

	rec := f.do(t, http.MethodPost, path, owner, transitionRequest{Target: order.StatusPendingDocuments})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var res application.Result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.OK || res.NewStatus != order.StatusPendingDocuments {
		t.Errorf("result = %+v", res)
	}

	tests := []struct {
		name string
		body any
		path string
		want int
		code order.Code
	}{
		{"not in table", transitionRequest{Target: order.StatusCompleted}, path, http.StatusUnprocessableEntity, order.CodeInvalidTransition},
		{"stale expected status", transitionRequest{Target: order.StatusDocumentsSubmitted, ExpectedStatus: order.StatusDraft}, path, http.StatusConflict, order.CodeConflict},
		{"missing record", transitionRequest{Target: order.StatusApproved}, "/records/missing/transitions", http.StatusNotFound, order.CodePersistenceError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, tt.path, owner, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
			var res application.Result
			if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if res.OK || res.Code != tt.code {
				t.Errorf("result = %+v, want code %s", res, tt.code)
			}
		})
	}
}

func TestServer_AdminOperations(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	created := f.create(t)
	base := "/records/" + created.ID
	owner := bearer(t, order.Owner("owner-1"))
	admin := bearer(t, order.Admin("admin-1"))

	tests := []struct {
		name   string
		method string
		path   string
		auth   string
		body   any
		want   int
	}{
		{"owner cannot review", http.MethodPost, base + "/documents/review", owner, reviewRequest{Verdict: order.DocumentsVerified}, http.StatusForbidden},
		{"unknown verdict", http.MethodPost, base + "/documents/review", admin, reviewRequest{Verdict: "maybe"}, http.StatusUnprocessableEntity},
		{"unknown payment stage", http.MethodPost, base + "/payments/deposit", admin, paymentRequest{Reference: "UTR-1"}, http.StatusUnprocessableEntity},
		{"owner cannot verify history", http.MethodGet, base + "/history/verify", owner, nil, http.StatusForbidden},
		{"admin verifies history", http.MethodGet, base + "/history/verify", admin, nil, http.StatusOK},
		{"verify missing record", http.MethodGet, "/records/missing/history/verify", admin, nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := f.do(t, tt.method, tt.path, tt.auth, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
			if tt.name == "admin verifies history" && !strings.Contains(rec.Body.String(), `"valid":true`) {
				t.Errorf("body = %s, want valid history", rec.Body)
			}
		})
	}
}

func TestStatusForCode(t *testing.T) {
	t.Parallel()

	tests := map[order.Code]int{
		order.CodeForbidden:         http.StatusForbidden,
		order.CodeConflict:          http.StatusConflict,
		order.CodeGateDenied:        http.StatusUnprocessableEntity,
		order.CodeInvalidTransition: http.StatusUnprocessableEntity,
		order.CodePersistenceError:  http.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := statusForCode(code); got != want {
			t.Errorf("statusForCode(%s) = %d, want %d", code, got, want)
		}
	}
}
