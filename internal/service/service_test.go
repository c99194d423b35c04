package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Dan9191/bank-portal/internal/config"
	"github.com/Dan9191/bank-portal/internal/gateway"
	"github.com/Dan9191/bank-portal/internal/metrics"
	"github.com/Dan9191/bank-portal/internal/models"
	"github.com/Dan9191/bank-portal/internal/ratelimit"
	"github.com/Dan9191/bank-portal/internal/security"
	"github.com/Dan9191/bank-portal/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

const (
	userID  = "6f1c2b9e-3a4d-4e5f-8a7b-1c2d3e4f5a6b"
	adminID = "0a9b8c7d-6e5f-4a3b-9c2d-1e0f9a8b7c6d"
	otherID = "d4c3b2a1-0f9e-4d8c-b7a6-5f4e3d2c1b0a"

	testEncKey = "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"
	testMacKey = "0f1e2d3c4b5a69788796a5b4c3d2e1f00f1e2d3c4b5a69788796a5b4c3d2e1f0"
)

var (
	fixedNow   = time.Date(2026, time.October, 15, 9, 30, 0, 0, time.UTC)
	fastParams = security.Argon2Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
)

type fakeAuth struct {
	signUp  func(email, password string) (*gateway.AuthResponse, error)
	signIn  func(email, password string) (*gateway.AuthResponse, error)
	signOut []string
	outErr  error
}

func (f *fakeAuth) SignUp(_ context.Context, email, password string) (*gateway.AuthResponse, error) {
	return f.signUp(email, password)
}

func (f *fakeAuth) SignIn(_ context.Context, email, password string) (*gateway.AuthResponse, error) {
	return f.signIn(email, password)
}

func (f *fakeAuth) SignOut(_ context.Context, token string) error {
	f.signOut = append(f.signOut, token)
	return f.outErr
}

type fakeBlobs struct {
	paths []string
	err   error
}

func (f *fakeBlobs) Upload(_ context.Context, bucket, path string, _ []byte, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.paths = append(f.paths, path)
	return "https://cdn.example.com/" + bucket + "/" + path, nil
}

type sentMail struct {
	kind, to, detail string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeNotifier) SendAccountStatusChange(to, _, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{"status", to, status})
	return f.err
}

func (f *fakeNotifier) SendBalanceAdjustment(to, _, accountNumber string, newBalance decimal.Decimal, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{"balance", to, accountNumber + "=" + newBalance.String()})
	return f.err
}

type fixture struct {
	svc      *Service
	store    *testutil.Store
	auth     *fakeAuth
	blobs    *fakeBlobs
	notifier *fakeNotifier
	sealer   *security.Sealer
	metrics  *metrics.Metrics
	logs     *test.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, hook := test.NewNullLogger()
	sealer, err := security.NewSealer(testEncKey, testMacKey)
	require.NoError(t, err)

	f := &fixture{
		store:    testutil.NewStore(),
		auth:     &fakeAuth{},
		blobs:    &fakeBlobs{},
		notifier: &fakeNotifier{},
		sealer:   sealer,
		metrics:  metrics.NewMetrics(prometheus.NewRegistry()),
		logs:     hook,
	}
	f.store.Now = func() time.Time { return fixedNow }

	cfg := &config.Config{PINAttemptsPerMinute: 3, StorageBucket: "public", MaxUploadBytes: 1 << 10}
	f.svc = NewService(f.store, logger, cfg, Dependencies{
		Auth:     f.auth,
		Blobs:    f.blobs,
		Notifier: f.notifier,
		Limiter:  ratelimit.NewMemory(cfg.PINAttemptsPerMinute, time.Minute),
		Sealer:   sealer,
		Metrics:  f.metrics,
	})
	f.svc.SetPINParams(fastParams)
	f.svc.SetClock(func() time.Time { return fixedNow })
	return f
}

func (f *fixture) addProfile(t *testing.T, p models.Profile) {
	t.Helper()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = fixedNow
	}
	f.store.Profiles[p.ID] = p
}

func (f *fixture) registered(t *testing.T, id, pin string, admin bool) {
	t.Helper()
	hash, err := security.HashPIN(pin, fastParams)
	require.NoError(t, err)
	f.addProfile(t, models.Profile{
		ID: id, Email: id[:4] + "@example.com", FirstName: "Jane", LastName: "Doe",
		AccountStatus: models.AccountStatusActive, IsAdmin: admin, PinHash: hash,
	})
}

func errAs[T error](t *testing.T, err error) T {
	t.Helper()
	var target T
	require.True(t, errors.As(err, &target), "got %T: %v", err, err)
	return target
}
