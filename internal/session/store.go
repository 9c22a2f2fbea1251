package session

import (
	"context"

	"github.com/google/uuid"
	"github.com/tomerlevy/claimdesk/pkg/logging"
)

// Store fronts the Postgres repository with the Redis cache. Cache failures
// are logged and swallowed; the flow keeps working from Postgres alone.
type Store struct {
	repo   *Repository
	cache  *Cache
	logger *logging.Logger
}

// NewStore creates a session store. The cache is optional.
func NewStore(repo *Repository, cache *Cache, logger *logging.Logger) *Store {
	if repo == nil {
		panic("session: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{repo: repo, cache: cache, logger: logger}
}

// Create inserts a new draft session.
func (s *Store) Create(ctx context.Context, phone string, serviceType ServiceType) (*Session, error) {
	sess, err := s.repo.Create(ctx, phone, serviceType)
	if err != nil {
		return nil, err
	}
	s.cacheSave(ctx, sess)
	return sess, nil
}

// Load returns the session, preferring the cache.
func (s *Store) Load(ctx context.Context, id uuid.UUID) (*Session, error) {
	if s.cache != nil {
		cached, err := s.cache.Load(ctx, id)
		if err != nil {
			s.logger.Warn("session cache read failed", "error", err, "session_id", id)
		} else if cached != nil {
			return cached, nil
		}
	}
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheSave(ctx, sess)
	return sess, nil
}

// Save applies a partial update and refreshes the cache.
func (s *Store) Save(ctx context.Context, id uuid.UUID, params UpdateParams) error {
	if err := s.repo.Update(ctx, id, params); err != nil {
		return err
	}
	s.refresh(ctx, id)
	return nil
}

// MarkPaid flips the session to paid exactly once.
func (s *Store) MarkPaid(ctx context.Context, id uuid.UUID) (bool, error) {
	updated, err := s.repo.MarkPaid(ctx, id)
	if err != nil {
		return false, err
	}
	if updated {
		s.refresh(ctx, id)
	}
	return updated, nil
}

func (s *Store) refresh(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		if invErr := s.cache.Invalidate(ctx, id); invErr != nil {
			s.logger.Warn("session cache invalidate failed", "error", invErr, "session_id", id)
		}
		return
	}
	s.cacheSave(ctx, sess)
}

func (s *Store) cacheSave(ctx context.Context, sess *Session) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(ctx, sess); err != nil {
		s.logger.Warn("session cache write failed", "error", err, "session_id", sess.ID)
	}
}
