package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/final-deterrence/web-workshop/internal/auth"
	"github.com/final-deterrence/web-workshop/internal/directory"
	"github.com/final-deterrence/web-workshop/internal/models"
)

// memUsers is an in-memory user directory with the same uniqueness rule as
// the real backends.
type memUsers struct {
	mu      sync.Mutex
	byName  map[string]*models.User
	seq     int
	findErr error
}

func newMemUsers() *memUsers {
	return &memUsers{byName: make(map[string]*models.User)}
}

func (m *memUsers) FindByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	u, ok := m.byName[username]
	if !ok {
		return nil, directory.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) CreateUser(_ context.Context, username, hash string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[username]; ok {
		return nil, fmt.Errorf("%w: %s", directory.ErrConflict, username)
	}
	m.seq++
	u := &models.User{UUID: fmt.Sprintf("u-%d", m.seq), Username: username, PasswordHash: hash}
	m.byName[username] = u
	cp := *u
	return &cp, nil
}

func (m *memUsers) UpdatePassword(_ context.Context, userUUID, hash string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byName {
		if u.UUID == userUUID {
			u.PasswordHash = hash
			return 1, nil
		}
	}
	return 0, nil
}

func (m *memUsers) remove(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byName, username)
}

type sentEmail struct {
	to, subject, body string
}

type fakeSender struct {
	sent []sentEmail
	err  error
}

func (f *fakeSender) Send(_ context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{to, subject, body})
	return nil
}

// onceGuard behaves like the redis guard without a server.
type onceGuard struct {
	seen map[string]bool
	ttls []time.Duration
	err  error
}

func (g *onceGuard) Consume(_ context.Context, id string, ttl time.Duration) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	if g.seen == nil {
		g.seen = make(map[string]bool)
	}
	g.ttls = append(g.ttls, ttl)
	if g.seen[id] {
		return false, nil
	}
	g.seen[id] = true
	return true, nil
}

// fakeChat answers the chat contract from func fields.
type fakeChat struct {
	joinedRooms    func(ctx context.Context, userUUID string) ([]models.Room, error)
	messagesByRoom func(ctx context.Context, roomUUID string, limit int) ([]models.Message, error)
	messageByUUID  func(ctx context.Context, uuid string) (*models.Message, error)
	addMessage     func(ctx context.Context, msg *models.Message) (*models.Message, error)
}

func (f *fakeChat) JoinedRooms(ctx context.Context, userUUID string) ([]models.Room, error) {
	return f.joinedRooms(ctx, userUUID)
}

func (f *fakeChat) MessagesByRoom(ctx context.Context, roomUUID string, limit int) ([]models.Message, error) {
	return f.messagesByRoom(ctx, roomUUID, limit)
}

func (f *fakeChat) MessageByUUID(ctx context.Context, uuid string) (*models.Message, error) {
	return f.messageByUUID(ctx, uuid)
}

func (f *fakeChat) AddMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	return f.addMessage(ctx, msg)
}

func newTestIssuer() *auth.Issuer {
	return auth.NewIssuer(auth.IssuerConfig{
		Secret:       "test-secret-key",
		SessionTTL:   24 * time.Hour,
		ResetTTL:     time.Hour,
		AllowedRoles: []string{"admin", "user"},
		DefaultRole:  "user",
	})
}
