package sim

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

var (
	ErrSessionNotFound = errors.New("simulation not found")
	ErrTooManySessions = errors.New("too many running simulations")
	ErrManagerShutdown = errors.New("session manager is shut down")
)

// ManagerConfig controls how sessions are run and reaped.
type ManagerConfig struct {
	TickRate      int
	BroadcastRate int
	MaxSessions   int
	IdleTimeout   time.Duration
}

// SessionInfo is the listing view of a running session.
type SessionInfo struct {
	ID        string    `json:"id"`
	Seed      int64     `json:"seed"`
	Preset    Preset    `json:"preset"`
	BallCount int       `json:"ball_count"`
	Mode      Mode      `json:"mode"`
	CreatedAt time.Time `json:"created_at"`
}

type managedSession struct {
	*Session
	cancel context.CancelFunc
}

// SessionManager owns every running simulation of the process.
type SessionManager struct {
	cfg      ManagerConfig
	sinks    Sinks
	ctx      context.Context
	sessions map[string]*managedSession
	closed   bool
	mu       sync.RWMutex
}

// NewSessionManager creates a manager whose session loops stop when ctx is done.
func NewSessionManager(ctx context.Context, cfg ManagerConfig, sinks Sinks) *SessionManager {
	return &SessionManager{
		cfg:      cfg,
		sinks:    sinks,
		ctx:      ctx,
		sessions: make(map[string]*managedSession),
	}
}

// generateToken generates a random hex token
func generateToken(length int) string {
	bytes := make([]byte, length)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// generateSimID generates a unique simulation ID
func generateSimID() string {
	return "sim_" + generateToken(8)
}

// Create validates settings, records the run and starts its ticker loop.
func (m *SessionManager) Create(ctx context.Context, settings Settings, seed int64) (*Session, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	err := m.admitLocked()
	m.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	// Seeding the balls can take a while; keep it outside the lock.
	id := generateSimID()
	sess := NewSession(id, settings, seed, m.cfg.TickRate, m.cfg.BroadcastRate, m.sinks)

	m.mu.Lock()
	if err := m.admitLocked(); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	loopCtx, cancel := context.WithCancel(m.ctx)
	m.sessions[id] = &managedSession{Session: sess, cancel: cancel}
	m.mu.Unlock()

	if m.sinks.Recorder != nil {
		run := RunInfo{ID: id, Seed: seed, Settings: settings, CreatedAt: sess.CreatedAt}
		if err := m.sinks.Recorder.CreateRun(ctx, run); err != nil {
			log.Printf("[DB] Failed to record run %s: %v", id, err)
		}
	}

	go sess.Run(loopCtx)
	log.Printf("[SIM] Created %s (preset=%s, balls=%d, seed=%d)", id, settings.Preset, settings.BallCount, seed)
	return sess, nil
}

func (m *SessionManager) admitLocked() error {
	if m.closed {
		return ErrManagerShutdown
	}
	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		return fmt.Errorf("%w (limit %d)", ErrTooManySessions, m.cfg.MaxSessions)
	}
	return nil
}

// Get returns the running session with the given ID.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ms, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ms.Session, nil
}

// Remove stops a session and waits for its loop to exit.
func (m *SessionManager) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	ms, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	m.stop(ctx, ms)
	return nil
}

func (m *SessionManager) stop(ctx context.Context, ms *managedSession) {
	ms.cancel()
	<-ms.Done()

	if m.sinks.Recorder != nil {
		if err := m.sinks.Recorder.EndRun(ctx, ms.ID); err != nil {
			log.Printf("[DB] Failed to end run %s: %v", ms.ID, err)
		}
	}
	if m.sinks.Snapshots != nil {
		if err := m.sinks.Snapshots.DeleteSnapshot(ctx, ms.ID); err != nil {
			log.Printf("[SIM] Failed to drop cached snapshot of %s: %v", ms.ID, err)
		}
	}
	ms.notify(ctx, Notice{Type: NoticeStopped})
	log.Printf("[SIM] Removed %s", ms.ID)
}

// List returns the running sessions, oldest first.
func (m *SessionManager) List() []SessionInfo {
	m.mu.RLock()
	all := make([]*Session, 0, len(m.sessions))
	for _, ms := range m.sessions {
		all = append(all, ms.Session)
	}
	m.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(all))
	for _, s := range all {
		snap := s.Snapshot()
		infos = append(infos, SessionInfo{
			ID:        s.ID,
			Seed:      s.Seed,
			Preset:    s.Settings().Preset,
			BallCount: len(snap.Balls),
			Mode:      snap.Mode,
			CreatedAt: s.CreatedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// Count returns the number of running sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ReapIdle removes sessions nobody has viewed for IdleTimeout. It returns the removed IDs.
func (m *SessionManager) ReapIdle(ctx context.Context, now time.Time) []string {
	if m.cfg.IdleTimeout <= 0 {
		return nil
	}

	m.mu.Lock()
	var idle []*managedSession
	for id, ms := range m.sessions {
		if ms.IdleFor(now) >= m.cfg.IdleTimeout {
			idle = append(idle, ms)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	ids := make([]string, 0, len(idle))
	for _, ms := range idle {
		log.Printf("[IDLE] Reaping %s (idle %s)", ms.ID, ms.IdleFor(now).Round(time.Second))
		m.stop(ctx, ms)
		ids = append(ids, ms.ID)
	}
	return ids
}

// StartIdleReaper removes idle sessions every interval until ctx is done.
func (m *SessionManager) StartIdleReaper(ctx context.Context, interval time.Duration) {
	if m.cfg.IdleTimeout <= 0 || interval <= 0 {
		log.Println("[IDLE] Idle timeout disabled; reaper not started")
		return
	}

	log.Println("[IDLE] Idle reaper started")
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[IDLE] Idle reaper stopping")
				return
			case now := <-ticker.C:
				m.ReapIdle(ctx, now)
			}
		}
	}()
}

// Shutdown stops every session. Create fails afterwards.
func (m *SessionManager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	m.closed = true
	all := make([]*managedSession, 0, len(m.sessions))
	for id, ms := range m.sessions {
		all = append(all, ms)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, ms := range all {
		m.stop(ctx, ms)
	}
}
