package auth_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/jokesdb/jokes-api/internal/auth"
	"github.com/jokesdb/jokes-api/internal/authz"
	"github.com/jokesdb/jokes-api/internal/rbac"
	"github.com/jokesdb/jokes-api/internal/shared"
	_ "github.com/jokesdb/jokes-api/testing"
)

type memoryRepo struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[int64]*auth.Account
	deleted  map[int64]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{accounts: make(map[int64]*auth.Account), deleted: make(map[int64]bool)}
}

func (m *memoryRepo) seed(t *testing.T, email, password string, status rbac.Status, roles ...rbac.Role) auth.Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	acc := &auth.Account{ID: m.nextID, Name: email, Email: email, PasswordHash: string(hash), Status: status, Roles: roles, CreatedAt: time.Now()}
	m.accounts[acc.ID] = acc
	return *acc
}

func (m *memoryRepo) setStatus(id int64, status rbac.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[id].Status = status
}

func (m *memoryRepo) FindByEmail(ctx context.Context, email string) (auth.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, acc := range m.accounts {
		if strings.EqualFold(acc.Email, email) && !m.deleted[id] {
			return *acc, nil
		}
	}
	return auth.Account{}, shared.NotFound("User")
}

func (m *memoryRepo) FindByID(ctx context.Context, id int64) (auth.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok || m.deleted[id] {
		return auth.Account{}, shared.NotFound("User")
	}
	return *acc, nil
}

func (m *memoryRepo) Create(ctx context.Context, name, email, passwordHash string, role rbac.Role) (auth.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, acc := range m.accounts {
		if acc.Email == email {
			return auth.Account{}, shared.Conflict("The email has already been taken.")
		}
	}
	m.nextID++
	acc := &auth.Account{ID: m.nextID, Name: name, Email: email, PasswordHash: passwordHash, Status: rbac.StatusActive, Roles: []rbac.Role{role}}
	m.accounts[acc.ID] = acc
	return *acc, nil
}

func (m *memoryRepo) UpdateProfile(ctx context.Context, id int64, changes auth.ProfileChanges) (auth.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok || m.deleted[id] {
		return auth.Account{}, shared.NotFound("User")
	}
	if changes.Email != nil {
		for oid, other := range m.accounts {
			if oid != id && other.Email == *changes.Email {
				return auth.Account{}, shared.Conflict("The email has already been taken.")
			}
		}
		acc.Email = *changes.Email
	}
	if changes.Name != nil {
		acc.Name = *changes.Name
	}
	if changes.PasswordHash != nil {
		acc.PasswordHash = *changes.PasswordHash
	}
	return *acc, nil
}

func (m *memoryRepo) SetPassword(ctx context.Context, id int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return shared.NotFound("User")
	}
	acc.PasswordHash = passwordHash
	return nil
}

func (m *memoryRepo) SoftDelete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; !ok || m.deleted[id] {
		return shared.NotFound("User")
	}
	m.deleted[id] = true
	return nil
}

func (m *memoryRepo) UserIDsWithRole(ctx context.Context, role rbac.Role) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id, acc := range m.accounts {
		for _, r := range acc.Roles {
			if r == role {
				ids = append(ids, id)
				break
			}
		}
	}
	return ids, nil
}

type recordingQueue struct {
	notices []int64
}

func (q *recordingQueue) EnqueuePasswordResetNotice(ctx context.Context, userID int64) error {
	q.notices = append(q.notices, userID)
	return nil
}

type fixture struct {
	repo    *memoryRepo
	tokens  *auth.TokenService
	queue   *recordingQueue
	service *auth.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := newMemoryRepo()
	tokens := auth.NewTokenService(client, "secret", time.Hour)
	queue := &recordingQueue{}
	svc := auth.NewService(auth.ServiceConfig{
		Repo:     repo,
		Tokens:   tokens,
		Engine:   authz.NewEngine(nil),
		Notices:  queue,
		HashCost: bcrypt.MinCost,
	})
	return &fixture{repo: repo, tokens: tokens, queue: queue, service: svc}
}
