package sessions

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/corner-store/storefront/internal/app/domain/session"
	"github.com/corner-store/storefront/internal/app/storage"
	"github.com/corner-store/storefront/pkg/logger"
)

// Service manages browser sessions. A session owns a cart, a checkout flow
// position and a set of transient notices; all of it is in-memory and gone on
// restart.
type Service struct {
	store storage.SessionStore
	log   *logger.Logger
}

func New(store storage.SessionStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("sessions")
	}
	return &Service{store: store, log: log}
}

// Create opens a fresh session.
func (s *Service) Create(ctx context.Context) (session.Session, error) {
	now := time.Now().UTC()
	created, err := s.store.CreateSession(ctx, session.Session{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		LastSeenAt: now,
	})
	if err != nil {
		return session.Session{}, err
	}
	s.log.WithField("session", created.ID).Debug("session created")
	return created, nil
}

// Get looks up a session by id.
func (s *Service) Get(ctx context.Context, id string) (session.Session, error) {
	return s.store.GetSession(ctx, id)
}

// Touch marks the session as recently active.
func (s *Service) Touch(ctx context.Context, id string) error {
	return s.store.TouchSession(ctx, id, time.Now().UTC())
}

// Notices returns the session's unexpired notices.
func (s *Service) Notices(ctx context.Context, id string) ([]session.Notice, error) {
	return s.store.ListNotices(ctx, id, time.Now().UTC())
}
