package model

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Stream event types
const (
	StreamEventConnected    = "connected"
	StreamEventFrame        = "frame"
	StreamEventError        = "error"
	StreamEventDisconnected = "disconnected"
)

// StreamEvent is one message pushed to a live stream subscriber
type StreamEvent struct {
	Type      string `json:"type"`
	DeviceID  string `json:"device_id"`
	Data      string `json:"data,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// IsTerminal reports whether the event closes the stream
func (e StreamEvent) IsTerminal() bool {
	return e.Type == StreamEventError || e.Type == StreamEventDisconnected
}

// StreamSession is the registry view of one device's live stream
type StreamSession struct {
	DeviceID  string    `json:"device_id"`
	Active    bool      `json:"active"`
	StartedAt time.Time `json:"started_at"`
	Token     string    `json:"-"`
}

// SessionStore tracks at most one live stream session per device
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*StreamSession
}

// NewSessionStore creates an empty session store
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*StreamSession),
	}
}

// Activate creates an active session for deviceID and returns its owner token.
// It fails with ErrSessionActive while any session entry exists for the device.
func (s *SessionStore) Activate(deviceID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[deviceID]; exists {
		return "", ErrSessionActive
	}

	token := uuid.NewString()
	s.sessions[deviceID] = &StreamSession{
		DeviceID:  deviceID,
		Active:    true,
		StartedAt: time.Now().UTC(),
		Token:     token,
	}
	return token, nil
}

// IsActive reports whether the session owned by token is still flagged active
func (s *SessionStore) IsActive(deviceID, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[deviceID]
	return exists && session.Token == token && session.Active
}

// Deactivate flips the active flag off; the owning loop notices on its next turn
func (s *SessionStore) Deactivate(deviceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[deviceID]
	if !exists {
		return false
	}
	session.Active = false
	return true
}

// Remove deletes the session only if it is still owned by token
func (s *SessionStore) Remove(deviceID, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[deviceID]
	if !exists || session.Token != token {
		return false
	}
	delete(s.sessions, deviceID)
	return true
}

// Get returns a copy of the session for deviceID
func (s *SessionStore) Get(deviceID string) (StreamSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[deviceID]
	if !exists {
		return StreamSession{}, false
	}
	return *session, true
}

// ActiveDevices lists devices whose session is flagged active, sorted
func (s *SessionStore) ActiveDevices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	devices := make([]string, 0, len(s.sessions))
	for id, session := range s.sessions {
		if session.Active {
			devices = append(devices, id)
		}
	}
	slices.Sort(devices)
	return devices
}
