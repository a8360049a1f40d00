package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skypro1111/consult-transcriber/internal/audio"
	"github.com/skypro1111/consult-transcriber/internal/metrics"
	"github.com/skypro1111/consult-transcriber/internal/pipeline"
	"github.com/skypro1111/consult-transcriber/internal/transcription"
)

var (
	ErrNotFound      = errors.New("session not found")
	ErrNotActive     = errors.New("session is not accepting chunks")
	ErrTooManyChunks = errors.New("session chunk limit reached")
	ErrChunkTooLarge = errors.New("chunk exceeds size limit")
	ErrEmptyChunk    = errors.New("chunk is empty")
	ErrInvalidIndex  = errors.New("invalid chunk index")
	ErrNoChunks      = errors.New("session has no chunks")
)

// Status is the lifecycle state of a session
type Status string

const (
	StatusActive     Status = "active"
	StatusFinalizing Status = "finalizing"
	StatusFinalized  Status = "finalized"
)

// Runner transcribes reassembled chunks
type Runner interface {
	RunChunks(ctx context.Context, chunks []audio.Chunk, expectedCount int, opts pipeline.Options) (*transcription.Result, error)
}

// Config contains configuration for the session manager
type Config struct {
	Timeout         time.Duration
	CleanupInterval time.Duration
	MaxChunks       int
	MaxChunkBytes   int
}

// Session is one chunked recording
type Session struct {
	ID           string
	Owner        string
	CreatedAt    time.Time
	LastActivity time.Time

	status    Status
	chunks    map[int][]byte
	lastIndex int // -1 until a chunk flagged last arrives
	bytes     int
	result    *transcription.Result

	mu sync.RWMutex
}

// Info is a read-only snapshot of a session
type Info struct {
	ID           string                `json:"id"`
	Owner        string                `json:"owner"`
	Status       Status                `json:"status"`
	CreatedAt    time.Time             `json:"created_at"`
	LastActivity time.Time             `json:"last_activity"`
	Chunks       []int                 `json:"chunks"`
	Bytes        int                   `json:"bytes"`
	LastIndex    *int                  `json:"last_index,omitempty"`
	Result       *transcription.Result `json:"result,omitempty"`
}

// Stats are cumulative manager counters
type Stats struct {
	Active    int    `json:"active"`
	Created   uint64 `json:"created"`
	Finalized uint64 `json:"finalized"`
	Expired   uint64 `json:"expired"`
	Chunks    uint64 `json:"chunks"`
}

// Manager manages all open recording sessions
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	cfg      Config
	runner   Runner
	metrics  *metrics.Metrics
	logger   *slog.Logger

	created   uint64
	finalized uint64
	expired   uint64
	chunks    uint64

	// Cleanup management
	ctx     context.Context
	cancel  context.CancelFunc
	cleanup chan struct{}
}

// NewManager creates a session manager and starts its cleanup routine
func NewManager(cfg Config, runner Runner, m *metrics.Metrics, logger *slog.Logger) *Manager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	mgr := &Manager{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		runner:   runner,
		metrics:  m,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		cleanup:  make(chan struct{}),
	}

	go mgr.startCleanupRoutine()

	return mgr
}

// Create opens a new session for owner
func (m *Manager) Create(owner string) Info {
	now := time.Now()
	s := &Session{
		ID:           uuid.NewString(),
		Owner:        owner,
		CreatedAt:    now,
		LastActivity: now,
		status:       StatusActive,
		chunks:       make(map[int][]byte),
		lastIndex:    -1,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.created++
	active := len(m.sessions)
	m.mu.Unlock()

	m.metrics.RecordSessionCreated()
	m.metrics.SetActiveSessions(active)

	m.logger.Info("Created recording session",
		slog.String("session_id", s.ID),
		slog.String("owner", owner),
	)

	return s.info()
}

// lookup returns the session if it exists and belongs to owner. Sessions of other
// owners are reported as missing.
func (m *Manager) lookup(id, owner string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok || s.Owner != owner {
		return nil, ErrNotFound
	}
	return s, nil
}

// AddChunk stores chunk data under index. Re-uploading an index replaces it.
func (m *Manager) AddChunk(id, owner string, index int, data []byte, isLast bool) (Info, error) {
	s, err := m.lookup(id, owner)
	if err != nil {
		return Info{}, err
	}

	if len(data) == 0 {
		return Info{}, ErrEmptyChunk
	}
	if m.cfg.MaxChunkBytes > 0 && len(data) > m.cfg.MaxChunkBytes {
		return Info{}, fmt.Errorf("%w: %d bytes, maximum %d", ErrChunkTooLarge, len(data), m.cfg.MaxChunkBytes)
	}
	if index < 0 {
		return Info{}, fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	if m.cfg.MaxChunks > 0 && index >= m.cfg.MaxChunks {
		return Info{}, fmt.Errorf("%w: index %d, maximum %d chunks", ErrTooManyChunks, index, m.cfg.MaxChunks)
	}

	s.mu.Lock()
	if s.status != StatusActive {
		s.mu.Unlock()
		return Info{}, ErrNotActive
	}
	if s.lastIndex >= 0 && index > s.lastIndex {
		s.mu.Unlock()
		return Info{}, fmt.Errorf("%w: %d is after the last chunk %d", ErrInvalidIndex, index, s.lastIndex)
	}
	if isLast {
		for existing := range s.chunks {
			if existing > index {
				s.mu.Unlock()
				return Info{}, fmt.Errorf("%w: chunk %d already stored after last chunk %d", ErrInvalidIndex, existing, index)
			}
		}
	}
	old, replaced := s.chunks[index]
	if !replaced && m.cfg.MaxChunks > 0 && len(s.chunks) >= m.cfg.MaxChunks {
		s.mu.Unlock()
		return Info{}, fmt.Errorf("%w: %d", ErrTooManyChunks, m.cfg.MaxChunks)
	}

	s.chunks[index] = append([]byte(nil), data...)
	s.bytes += len(data) - len(old)
	if isLast {
		s.lastIndex = index
	}
	s.LastActivity = time.Now()
	s.mu.Unlock()

	m.mu.Lock()
	m.chunks++
	m.mu.Unlock()
	m.metrics.RecordChunkReceived(len(data))

	m.logger.Debug("Chunk stored",
		slog.String("session_id", id),
		slog.Int("chunk_index", index),
		slog.Int("bytes", len(data)),
		slog.Bool("is_last", isLast),
		slog.Bool("replaced", replaced),
	)

	return s.info(), nil
}

// Get returns a snapshot of a session
func (m *Manager) Get(id, owner string) (Info, error) {
	s, err := m.lookup(id, owner)
	if err != nil {
		return Info{}, err
	}
	return s.info(), nil
}

// List returns the sessions of owner, newest first
func (m *Manager) List(owner string) []Info {
	m.mu.RLock()
	infos := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		if s.Owner == owner {
			infos = append(infos, s.info())
		}
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})
	return infos
}

// Finalize reassembles the uploaded chunks and transcribes them. On an input error the
// session returns to active so the client can upload missing chunks and retry.
func (m *Manager) Finalize(ctx context.Context, id, owner string, opts pipeline.Options) (*transcription.Result, error) {
	s, err := m.lookup(id, owner)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.status != StatusActive {
		s.mu.Unlock()
		return nil, ErrNotActive
	}
	if len(s.chunks) == 0 {
		s.mu.Unlock()
		return nil, ErrNoChunks
	}
	chunks := make([]audio.Chunk, 0, len(s.chunks))
	for index, data := range s.chunks {
		chunks = append(chunks, audio.Chunk{Index: index, Data: data, IsLast: index == s.lastIndex})
	}
	expected := s.lastIndex + 1
	s.status = StatusFinalizing
	s.mu.Unlock()

	m.logger.Info("Finalizing recording session",
		slog.String("session_id", id),
		slog.Int("chunks", len(chunks)),
		slog.Int("expected_chunks", expected),
	)

	result, err := m.runner.RunChunks(ctx, chunks, expected, opts)

	s.mu.Lock()
	s.LastActivity = time.Now()

	if err != nil {
		s.status = StatusActive
		s.mu.Unlock()
		m.logger.Warn("Session finalization failed",
			slog.String("session_id", id),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.status = StatusFinalized
	s.result = result
	s.chunks = make(map[int][]byte)
	s.bytes = 0
	s.mu.Unlock()

	// lock order is m.mu before s.mu
	m.mu.Lock()
	m.finalized++
	m.mu.Unlock()

	m.logger.Info("Recording session finalized",
		slog.String("session_id", id),
		slog.String("status", string(result.Status)),
		slog.Duration("duration", time.Since(s.CreatedAt)),
	)

	return result, nil
}

// Remove deletes a session and its chunks
func (m *Manager) Remove(id, owner string) error {
	if _, err := m.lookup(id, owner); err != nil {
		return err
	}
	m.remove(id)
	return nil
}

func (m *Manager) remove(id string) bool {
	m.mu.Lock()
	_, exists := m.sessions[id]
	delete(m.sessions, id)
	active := len(m.sessions)
	m.mu.Unlock()

	if exists {
		m.metrics.SetActiveSessions(active)
	}
	return exists
}

// GetActiveSessionCount returns the number of open sessions
func (m *Manager) GetActiveSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// GetStats returns cumulative session statistics
func (m *Manager) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Stats{
		Active:    len(m.sessions),
		Created:   m.created,
		Finalized: m.finalized,
		Expired:   m.expired,
		Chunks:    m.chunks,
	}
}

// Stop gracefully stops the session manager
func (m *Manager) Stop() {
	m.logger.Info("Stopping session manager...")

	// Cancel context to stop cleanup routine
	m.cancel()

	// Wait for cleanup routine to finish
	<-m.cleanup

	stats := m.GetStats()
	m.logger.Info("Session manager stopped",
		slog.Int("remaining_sessions", stats.Active),
		slog.Uint64("sessions_created", stats.Created),
		slog.Uint64("sessions_finalized", stats.Finalized),
		slog.Uint64("sessions_expired", stats.Expired),
	)
}

// startCleanupRoutine runs in a separate goroutine to clean up expired sessions
func (m *Manager) startCleanupRoutine() {
	defer close(m.cleanup)

	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()

	m.logger.Info("Session cleanup routine started",
		slog.Duration("timeout", m.cfg.Timeout),
		slog.Duration("check_interval", m.cfg.CleanupInterval),
	)

	for {
		select {
		case <-m.ctx.Done():
			m.logger.Info("Session cleanup routine stopping")
			return

		case <-ticker.C:
			m.cleanupExpiredSessions()
		}
	}
}

// cleanupExpiredSessions removes sessions that have been inactive for too long.
// Sessions being finalized are left alone.
func (m *Manager) cleanupExpiredSessions() {
	now := time.Now()
	expiredSessions := make([]string, 0)

	m.mu.RLock()
	for id, s := range m.sessions {
		s.mu.RLock()
		lastActivity := s.LastActivity
		status := s.status
		s.mu.RUnlock()

		if status != StatusFinalizing && now.Sub(lastActivity) > m.cfg.Timeout {
			expiredSessions = append(expiredSessions, id)
		}
	}
	m.mu.RUnlock()

	if len(expiredSessions) > 0 {
		m.logger.Info("Cleaning up expired sessions",
			slog.Int("expired_count", len(expiredSessions)),
		)

		for _, id := range expiredSessions {
			if m.remove(id) {
				m.mu.Lock()
				m.expired++
				m.mu.Unlock()
				m.metrics.RecordSessionExpired()
			}
		}
	}
}

func (s *Session) info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	indices := make([]int, 0, len(s.chunks))
	for index := range s.chunks {
		indices = append(indices, index)
	}
	sort.Ints(indices)

	info := Info{
		ID:           s.ID,
		Owner:        s.Owner,
		Status:       s.status,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
		Chunks:       indices,
		Bytes:        s.bytes,
		Result:       s.result,
	}
	if s.lastIndex >= 0 {
		last := s.lastIndex
		info.LastIndex = &last
	}
	return info
}
