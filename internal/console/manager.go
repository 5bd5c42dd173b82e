package console

import (
	"sync"

	"user_admin_backend/internal/user"

	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// Manager keeps one Console per operator UID in memory.
type Manager struct {
	users    user.Service
	sessions SessionRevoker
	logger   *zap.Logger

	mu       sync.Mutex
	consoles map[string]*Console
}

func NewManager(users user.Service, sessions SessionRevoker, logger *zap.Logger) *Manager {
	return &Manager{
		users:    users,
		sessions: sessions,
		logger:   logger.Named("Console"),
		consoles: make(map[string]*Console),
	}
}

// Get returns the operator's console, creating it on first use, and sets its language.
func (m *Manager) Get(operatorUID string, lang language.Tag) *Console {
	m.mu.Lock()
	c, ok := m.consoles[operatorUID]
	if !ok {
		c = New(operatorUID, m.users, m.sessions, lang, m.logger)
		m.consoles[operatorUID] = c
	}
	m.mu.Unlock()

	if ok {
		c.SetLanguage(lang)
	}
	return c
}

// Remove discards the operator's console.
func (m *Manager) Remove(operatorUID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.consoles, operatorUID)
}

// Len reports the number of live consoles.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.consoles)
}
