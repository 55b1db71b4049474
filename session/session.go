// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wdlord/discord-pokebot/models"
	"github.com/wdlord/discord-pokebot/network"
)

// Session 一个websocket连接。Identify之前 UserID 为0
type Session struct {
	ID         string
	Conn       network.Connection
	UserID     models.PlayerID
	CreatedAt  time.Time
	LastActive time.Time
	mutex      sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
	}
}

// Identify binds the session to a player.
func (s *Session) Identify(userID models.PlayerID) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.UserID = userID
}

// User returns the bound player, false before Identify.
func (s *Session) User() (models.PlayerID, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.UserID, s.UserID != 0
}

func (s *Session) Touch() {
	s.mutex.Lock()
	s.LastActive = time.Now()
	s.mutex.Unlock()
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.Touch()
	return s.Conn.Send(msgID, data)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// GetByUserID 一个玩家可能有多个连接
func (m *Manager) GetByUserID(userID models.PlayerID) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if id, ok := session.User(); ok && id == userID {
			result = append(result, session)
		}
	}
	return result
}

// All returns a snapshot of every session.
func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	result := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
