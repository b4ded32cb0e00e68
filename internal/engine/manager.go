package engine

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"primestream/internal/streamkey"
	"primestream/internal/transport"
	"primestream/pkg/models"
)

// Manager owns the streaming sessions and maintains an in-memory registry.
// Every engine is an explicit instance keyed by session ID; there is no
// process-wide singleton, so multiple concurrent sessions are possible.
type Manager struct {
	sessions map[string]*Engine
	mu       sync.RWMutex

	defaults Options
}

// NewManager creates a session manager with shared engine options
func NewManager(defaults Options) *Manager {
	return &Manager{
		sessions: make(map[string]*Engine),
		defaults: defaults,
	}
}

// CreateSession creates a new idle engine and returns it
func (m *Manager) CreateSession(cfg models.StreamConfig, opts *Options) *Engine {
	effective := m.defaults
	if opts != nil {
		if opts.SourceKind != "" {
			effective.SourceKind = opts.SourceKind
		}
		if opts.Protocol != "" {
			effective.Protocol = opts.Protocol
		}
		if opts.StreamKey != "" {
			effective.StreamKey = opts.StreamKey
		}
		if opts.LatencyMS > 0 {
			effective.LatencyMS = opts.LatencyMS
		}
	}

	// SRT and RTMP name the stream on the wire; mint a key when none given
	if effective.StreamKey == "" &&
		(effective.Protocol == transport.ProtocolSRT || effective.Protocol == transport.ProtocolRTMP) {
		effective.StreamKey = streamkey.MustGenerate()
	}

	id := uuid.NewString()
	if effective.Sink == nil && effective.NewSink != nil {
		effective.Sink = effective.NewSink(id, cfg.VideoCodec)
	}
	eng := New(id, cfg, effective)

	m.mu.Lock()
	m.sessions[id] = eng
	m.mu.Unlock()
	return eng
}

// GetSession retrieves a session by ID
func (m *Manager) GetSession(id string) (*Engine, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	eng, exists := m.sessions[id]
	return eng, exists
}

// ListSessions returns all sessions
func (m *Manager) ListSessions() []*Engine {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*Engine, 0, len(m.sessions))
	for _, eng := range m.sessions {
		sessions = append(sessions, eng)
	}
	return sessions
}

// DeleteSession stops a session if needed and removes it from the registry
func (m *Manager) DeleteSession(id string) error {
	m.mu.Lock()
	eng, exists := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !exists {
		return fmt.Errorf("session %s not found", id)
	}
	return eng.Stop()
}

// StopAll stops every session; used during shutdown
func (m *Manager) StopAll() {
	for _, eng := range m.ListSessions() {
		eng.Stop()
	}
}
