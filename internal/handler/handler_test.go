package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dan9191/bank-portal/internal/config"
	"github.com/Dan9191/bank-portal/internal/gateway"
	"github.com/Dan9191/bank-portal/internal/models"
	"github.com/Dan9191/bank-portal/internal/security"
	"github.com/Dan9191/bank-portal/internal/service"
	"github.com/Dan9191/bank-portal/internal/session"
	"github.com/Dan9191/bank-portal/internal/testutil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	jwtSecret = "handler-test-secret"
	userID    = "6f1c2b9e-3a4d-4e5f-8a7b-1c2d3e4f5a6b"
	adminID   = "0a9b8c7d-6e5f-4a3b-9c2d-1e0f9a8b7c6d"
	accountID = "9e8d7c6b-5a4f-4e3d-8c2b-1a0f9e8d7c6b"
	missingID = "11111111-2222-4333-8444-555555555555"
)

var fastParams = security.Argon2Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type stubAuth struct{}

func (stubAuth) SignUp(_ context.Context, email, _ string) (*gateway.AuthResponse, error) {
	return &gateway.AuthResponse{User: &gateway.User{ID: userID, Email: email}}, nil
}

func (stubAuth) SignIn(_ context.Context, email, password string) (*gateway.AuthResponse, error) {
	if password != "Secret1!" {
		return nil, &gateway.Error{Status: http.StatusBadRequest, Message: "Invalid login credentials"}
	}
	return &gateway.AuthResponse{AccessToken: "access-" + userID, ExpiresIn: 3600, User: &gateway.User{ID: userID, Email: email}}, nil
}

func (stubAuth) SignOut(context.Context, string) error { return nil }

type stubBlobs struct{}

func (stubBlobs) Upload(_ context.Context, bucket, path string, _ []byte, _ string) (string, error) {
	return "https://cdn.example.com/" + bucket + "/" + path, nil
}

type env struct {
	router   *mux.Router
	store    *testutil.Store
	sessions *session.Resolver
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger, _ := test.NewNullLogger()
	cfg := &config.Config{
		SessionCookie:        "sb-access-token",
		PINAttemptsPerMinute: 2,
		StorageBucket:        "public",
		MaxUploadBytes:       1 << 10,
	}
	sealer, err := security.NewSealer(
		"a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6",
		"0f1e2d3c4b5a69788796a5b4c3d2e1f00f1e2d3c4b5a69788796a5b4c3d2e1f0",
	)
	require.NoError(t, err)

	store := testutil.NewStore()
	svc := service.NewService(store, logger, cfg, service.Dependencies{
		Auth:   stubAuth{},
		Blobs:  stubBlobs{},
		Sealer: sealer,
	})
	svc.SetPINParams(fastParams)

	resolver := session.NewResolver(cfg.SessionCookie, jwtSecret, nil, logger).WithPINSealer(sealer)
	r := mux.NewRouter()
	NewHandler(svc, resolver, cfg, logger).RegisterRoutes(r)
	return &env{router: r, store: store, sessions: resolver}
}

func token(t *testing.T, sub string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub,
		"email": sub[:4] + "@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return s
}

// do sends a request as a PIN-verified session of as
func (e *env) do(t *testing.T, method, path, as string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return e.send(t, method, path, as, body, true)
}

// doUnverified sends a request whose session has not passed the PIN check
func (e *env) doUnverified(t *testing.T, method, path, as string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return e.send(t, method, path, as, body, false)
}

func (e *env) authorize(t *testing.T, req *http.Request, as string, pinVerified bool) {
	t.Helper()
	tok := token(t, as)
	req.AddCookie(&http.Cookie{Name: "sb-access-token", Value: tok})
	if pinVerified {
		marker, err := e.sessions.PINMarker(tok)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: e.sessions.PINCookieName(), Value: marker})
	}
}

func (e *env) send(t *testing.T, method, path, as string, body any, pinVerified bool) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rd = strings.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			rd = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, rd)
	if as != "" {
		e.authorize(t, req, as, pinVerified)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *env) profile(t *testing.T, id string, admin bool) {
	t.Helper()
	hash, err := security.HashPIN("1234", fastParams)
	require.NoError(t, err)
	e.store.Profiles[id] = models.Profile{
		ID: id, Email: id[:4] + "@example.com", FirstName: "Jane", LastName: "Doe",
		AccountStatus: models.AccountStatusActive, IsAdmin: admin, PinHash: hash,
	}
}

type response struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) response {
	t.Helper()
	var r response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r), rec.Body.String())
	return r
}

func TestAPIRequiresSession(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/api/cards", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", decode(t, rec).Error)
}

func TestAPIRequiresVerifiedPIN(t *testing.T) {
	e := newEnv(t)
	e.profile(t, userID, true)

	for _, path := range []string{"/api/cards", "/api/accounts", "/api/security/devices", "/api/admin/stats"} {
		rec := e.doUnverified(t, http.MethodGet, path, userID, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
		assert.Equal(t, "PIN verification required", decode(t, rec).Error, path)
	}

	rec := e.doUnverified(t, http.MethodGet, "/api/profile", userID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = e.doUnverified(t, http.MethodGet, "/api/register/status", userID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	verify := httptest.NewRequest(http.MethodPost, "/api/auth/pin/verify", strings.NewReader(`{"pin":"1234"}`))
	e.authorize(t, verify, userID, false)
	rec = httptest.NewRecorder()
	e.router.ServeHTTP(rec, verify)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	marker := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/api/cards", nil)
	for _, c := range verify.Cookies() {
		req.AddCookie(c)
	}
	req.AddCookie(marker)
	rec = httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// A marker from one session does not unlock another
	stolen := httptest.NewRequest(http.MethodGet, "/api/cards", nil)
	stolen.AddCookie(&http.Cookie{Name: "sb-access-token", Value: token(t, adminID)})
	stolen.AddCookie(marker)
	rec = httptest.NewRecorder()
	e.router.ServeHTTP(rec, stolen)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCardLifecycle(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodGet, "/api/cards", userID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":[]}`, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/api/cards", userID, map[string]any{
		"card_type": "physical", "card_name": "Daily", "card_number_last4": "1234",
		"expiry_month": 3, "expiry_year": 2099, "cardholder_name": "JANE DOE",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var card models.Card
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &card))
	assert.Equal(t, models.CardStatusPending, card.Status)

	rec = e.do(t, http.MethodPatch, "/api/cards/"+card.ID+"/toggle-lock", userID, map[string]string{"status": "blocked"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodPatch, "/api/cards/"+card.ID+"/toggle-lock", userID, map[string]string{"status": "frozen"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid status", decode(t, rec).Error)

	rec = e.do(t, http.MethodPatch, "/api/cards/"+card.ID, userID, map[string]any{"cvv": "999"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No valid fields to update", decode(t, rec).Error)

	rec = e.do(t, http.MethodPatch, "/api/cards/"+card.ID, adminID, map[string]any{"card_name": "Stolen"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Card not found", decode(t, rec).Error)

	rec = e.do(t, http.MethodDelete, "/api/cards/"+card.ID, userID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, http.MethodDelete, "/api/cards/"+card.ID, userID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCardErrors(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/api/cards", userID, map[string]any{"card_type": "virtual"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required fields: card_name, card_number_last4, expiry_month, expiry_year, cardholder_name", decode(t, rec).Error)

	rec = e.do(t, http.MethodPost, "/api/cards", userID, "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	e.store.Fail["CreateCard"] = assert.AnError
	rec = e.do(t, http.MethodPost, "/api/cards", userID, map[string]any{
		"card_type": "virtual", "card_name": "x", "card_number_last4": "1234",
		"expiry_month": 1, "expiry_year": 2099, "cardholder_name": "J",
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to create card", decode(t, rec).Error)
}

func TestSignInSetsCookie(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/api/auth/signin", "", map[string]string{"email": "jane@example.com", "password": "Secret1!"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(decode(t, rec).Data), `"next":"register"`)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sb-access-token", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	rec = e.do(t, http.MethodPost, "/api/auth/signin", "", map[string]string{"email": "jane@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password", decode(t, rec).Error)
}

func TestSignOutClearsCookie(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/api/auth/signout", userID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, "sb-access-token", cookies[0].Name)
	assert.Equal(t, "sb-access-token-pin", cookies[1].Name)
	for _, c := range cookies {
		assert.Equal(t, -1, c.MaxAge)
	}
}

func TestPINVerifyRateLimit(t *testing.T) {
	e := newEnv(t)
	e.profile(t, userID, false)

	rec := e.doUnverified(t, http.MethodPost, "/api/auth/pin/verify", userID, map[string]string{"pin": "1234"})
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sb-access-token-pin", cookies[0].Name)

	for i := 0; i < 2; i++ {
		rec = e.do(t, http.MethodPost, "/api/auth/pin/verify", userID, map[string]string{"pin": "0000"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Incorrect PIN", decode(t, rec).Error)
		assert.Empty(t, rec.Result().Cookies())
	}
	rec = e.do(t, http.MethodPost, "/api/auth/pin/verify", userID, map[string]string{"pin": "1234"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRegistrationValidationFields(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/api/register", userID, map[string]any{"first_name": "Jane"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Contains(t, body.Fields, "last_name")
	assert.Contains(t, body.Fields, "pin")
	assert.Zero(t, e.store.CallCount("UpsertProfile"))

	rec = e.do(t, http.MethodPost, "/api/register/steps/2", userID, map[string]any{
		"address_line1": "1 Main", "city": "Springfield", "state": "IL", "zip_code": "62701", "country": "US",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRequiresProfileFlag(t *testing.T) {
	e := newEnv(t)
	e.profile(t, userID, false)

	rec := e.do(t, http.MethodGet, "/api/admin/stats", userID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdjustBalance(t *testing.T) {
	e := newEnv(t)
	e.profile(t, adminID, true)
	e.profile(t, userID, false)
	e.store.Accounts[accountID] = models.Account{ID: accountID, UserID: userID, AccountNumber: "100200300",
		Balance: testutil.Money("10"), AvailableBalance: testutil.Money("10")}
	path := "/api/admin/accounts/" + accountID + "/balance"

	rec := e.do(t, http.MethodPost, path, adminID, `{"new_balance":"25.50","description":"Correction"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res models.BalanceAdjustmentResult
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &res))
	assert.Equal(t, "10", res.PreviousBalance.String())
	assert.Equal(t, "25.5", res.NewBalance.String())

	rec = e.do(t, http.MethodPost, path, adminID, `{"new_balance":30}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodPost, path, adminID, `{"new_balance":"lots"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = e.do(t, http.MethodPost, path, adminID, `{"description":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	e.store.Fail["AdjustAccountBalance"] = &models.ProcedureError{Message: "Account is frozen", Err: assert.AnError}
	rec = e.do(t, http.MethodPost, path, adminID, `{"new_balance":1}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Account is frozen", decode(t, rec).Error)
}

func TestStatementDownload(t *testing.T) {
	e := newEnv(t)
	e.profile(t, userID, false)
	e.store.Accounts[accountID] = models.Account{ID: accountID, UserID: userID, AccountNumber: "100200300", Balance: testutil.Money("5")}

	rec := e.do(t, http.MethodGet, "/api/accounts/"+accountID+"/statement", userID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/xml")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "statement_100200300_")
	assert.Contains(t, rec.Body.String(), "<BkToCstmrStmt>")

	rec = e.do(t, http.MethodGet, "/api/accounts/"+missingID+"/statement", userID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Account not found", decode(t, rec).Error)
}

func TestUploadSelfie(t *testing.T) {
	e := newEnv(t)
	e.profile(t, userID, false)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "me.jpg")
	require.NoError(t, err)
	_, _ = part.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0, 'J', 'F', 'I', 'F'})
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/security/selfie", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	e.authorize(t, req, userID, true)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, e.store.Profiles[userID].IsVerified)
}

func TestPagesRedirect(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodGet, "/dashboard", "", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth", rec.Header().Get("Location"))

	rec = e.do(t, http.MethodGet, "/dashboard", userID, nil)
	assert.Equal(t, "/register", rec.Header().Get("Location"))

	rec = e.do(t, http.MethodGet, "/register", userID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	e.profile(t, userID, false)
	rec = e.do(t, http.MethodGet, "/register", userID, nil)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	rec = e.do(t, http.MethodGet, "/admin", userID, nil)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	rec = e.doUnverified(t, http.MethodGet, "/dashboard", userID, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth?step=pin", rec.Header().Get("Location"))

	rec = e.do(t, http.MethodGet, "/dashboard", userID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome, Jane")

	rec = e.do(t, http.MethodGet, "/auth", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
