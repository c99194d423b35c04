package service

import (
	"context"
	"time"

	"github.com/Dan9191/bank-portal/internal/config"
	"github.com/Dan9191/bank-portal/internal/gateway"
	"github.com/Dan9191/bank-portal/internal/metrics"
	"github.com/Dan9191/bank-portal/internal/models"
	"github.com/Dan9191/bank-portal/internal/ratelimit"
	"github.com/Dan9191/bank-portal/internal/repository"
	"github.com/Dan9191/bank-portal/internal/security"
	"github.com/Dan9191/bank-portal/internal/utils/email"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AuthProvider is the hosted auth API
type AuthProvider interface {
	SignUp(ctx context.Context, email, password string) (*gateway.AuthResponse, error)
	SignIn(ctx context.Context, email, password string) (*gateway.AuthResponse, error)
	SignOut(ctx context.Context, accessToken string) error
}

// BlobStore stores uploaded files and returns their public URL
type BlobStore interface {
	Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error)
}

// Sealer encrypts values at rest
type Sealer interface {
	Seal(data string) (string, error)
	Open(encoded string) (string, error)
}

// Dependencies are the collaborators the service talks to besides the store
type Dependencies struct {
	Auth     AuthProvider
	Blobs    BlobStore
	Notifier email.Notifier
	Limiter  ratelimit.Limiter
	Sealer   Sealer
	Metrics  *metrics.Metrics
}

// Service handles business logic
type Service struct {
	store     repository.Store
	auth      AuthProvider
	blobs     BlobStore
	notifier  email.Notifier
	limiter   ratelimit.Limiter
	sealer    Sealer
	metrics   *metrics.Metrics
	log       *logrus.Logger
	config    *config.Config
	pinParams security.Argon2Params
	now       func() time.Time
}

// NewService initializes a new service
func NewService(store repository.Store, log *logrus.Logger, cfg *config.Config, deps Dependencies) *Service {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = email.NewLogNotifier(log)
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = ratelimit.NewMemory(cfg.PINAttemptsPerMinute, time.Minute)
	}
	return &Service{
		store:     store,
		auth:      deps.Auth,
		blobs:     deps.Blobs,
		notifier:  notifier,
		limiter:   limiter,
		sealer:    deps.Sealer,
		metrics:   deps.Metrics,
		log:       log,
		config:    cfg,
		pinParams: security.DefaultArgon2Params,
		now:       time.Now,
	}
}

// SetPINParams overrides the argon2 cost, e.g. for tests
func (s *Service) SetPINParams(p security.Argon2Params) {
	s.pinParams = p
}

// SetClock overrides the time source
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// validID rejects ids that cannot name a row, so they read as absent
func validID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return models.ErrNotFound
	}
	return nil
}
