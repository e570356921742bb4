package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finsight/finsight/internal/analyzer"
	"github.com/finsight/finsight/internal/errs"
	"github.com/finsight/finsight/internal/logger"
	"github.com/finsight/finsight/internal/table"
)

// Config controls the in-memory store.
type Config struct {
	// TTL is the idle lifetime of a session; reads refresh it.
	TTL time.Duration

	// SweepInterval is how often expired sessions are evicted.
	SweepInterval time.Duration
}

// DefaultConfig returns the standard session settings.
func DefaultConfig() Config {
	return Config{
		TTL:           30 * time.Minute,
		SweepInterval: time.Minute,
	}
}

// MemoryStore is a TTL-evicting in-memory Store.
type MemoryStore struct {
	cfg Config
	log *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	done chan struct{}
	once sync.Once
}

// NewMemory creates a MemoryStore and starts its eviction janitor.
func NewMemory(cfg Config, log *logger.Logger) *MemoryStore {
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if log == nil {
		log = logger.Global()
	}
	s := &MemoryStore{
		cfg:      cfg,
		log:      log,
		sessions: make(map[string]*Session),
		done:     make(chan struct{}),
	}
	go s.janitor()
	return s
}

func (s *MemoryStore) Create(_ context.Context, fileName string, t *table.Table, analysis *analyzer.Analysis) (*Session, error) {
	now := time.Now()
	sess := &Session{
		ID:        uuid.NewString(),
		FileName:  fileName,
		Table:     t,
		Analysis:  analysis,
		CreatedAt: now,
		LastUsed:  now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.log.With().Str("session_id", sess.ID).Str("file", fileName).Logger().
		Info("session created")
	return snapshot(sess), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "session not found: "+id)
	}
	if time.Since(sess.LastUsed) > s.cfg.TTL {
		delete(s.sessions, id)
		return nil, errs.New(errs.ErrKindNotFound, "session expired: "+id)
	}
	sess.LastUsed = time.Now()
	return snapshot(sess), nil
}

// snapshot copies the session so callers never share History with a
// concurrent AppendHistory. Table and Analysis are read-only once built,
// so sharing those pointers is safe.
func snapshot(sess *Session) *Session {
	cp := *sess
	cp.History = append([]ChatEntry(nil), sess.History...)
	return &cp
}

func (s *MemoryStore) AppendHistory(_ context.Context, id string, entry ChatEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return errs.New(errs.ErrKindNotFound, "session not found: "+id)
	}
	sess.History = append(sess.History, entry)
	sess.LastUsed = time.Now()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// Close stops the janitor. Safe to call more than once.
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *MemoryStore) janitor() {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	now := time.Now()
	s.mu.Lock()
	for id, sess := range s.sessions {
		if now.Sub(sess.LastUsed) > s.cfg.TTL {
			delete(s.sessions, id)
			s.log.With().Str("session_id", id).Logger().Debug("session expired")
		}
	}
	s.mu.Unlock()
}
