package application

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prernathite123/SchoolManagement/internal/domain/entity"
	repo "github.com/prernathite123/SchoolManagement/internal/domain/repository"
)

// memUserRepo is an in-memory UserRepository with the same atomicity
// guarantees the SQL implementation provides: the token consume and the
// failed-login bump run under one lock, so concurrent callers observe
// them as single operations.
type memUserRepo struct {
	mu     sync.Mutex
	seq    int
	users  map[string]*entity.User
	failOn map[string]error // method name -> forced error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]*entity.User{}, failOn: map[string]error{}}
}

func (m *memUserRepo) forced(method string) error { return m.failOn[method] }

func cloneUser(u *entity.User) *entity.User {
	c := *u
	if u.VerificationExpires != nil {
		t := *u.VerificationExpires
		c.VerificationExpires = &t
	}
	if u.LockUntil != nil {
		t := *u.LockUntil
		c.LockUntil = &t
	}
	if u.LastLogin != nil {
		t := *u.LastLogin
		c.LastLogin = &t
	}
	return &c
}

func (m *memUserRepo) Create(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.forced("Create"); err != nil {
		return err
	}
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return repo.ErrDuplicate
		}
	}
	m.seq++
	u.ID = "u-" + strconv.Itoa(m.seq)
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = cloneUser(u)
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return cloneUser(u), nil
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			return cloneUser(u), nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *memUserRepo) Update(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return repo.ErrNotFound
	}
	u.UpdatedAt = time.Now()
	m.users[u.ID] = cloneUser(u)
	return nil
}

func (m *memUserRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.forced("Delete"); err != nil {
		return err
	}
	if _, ok := m.users[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memUserRepo) Deactivate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.IsActive = false
	return nil
}

func (m *memUserRepo) ConsumeVerificationToken(_ context.Context, tokenHash string, now time.Time) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.VerificationToken == tokenHash &&
			u.VerificationExpires != nil && u.VerificationExpires.After(now) {
			u.IsEmailVerified = true
			u.VerificationToken = ""
			u.VerificationExpires = nil
			return cloneUser(u), nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *memUserRepo) RecordFailedLogin(_ context.Context, id string, threshold int, lockFor time.Duration) (int, *time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return 0, nil, repo.ErrNotFound
	}
	u.LoginAttempts++
	if u.LoginAttempts >= threshold {
		until := time.Now().Add(lockFor)
		u.LockUntil = &until
	}
	return u.LoginAttempts, u.LockUntil, nil
}

func (m *memUserRepo) RecordLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.LoginAttempts = 0
	u.LockUntil = nil
	u.LastLogin = &at
	return nil
}

func (m *memUserRepo) List(_ context.Context, f repo.UserFilter) ([]*entity.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.User
	for _, u := range m.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.IsActive != nil && u.IsActive != *f.IsActive {
			continue
		}
		out = append(out, cloneUser(u))
	}
	return out, int64(len(out)), nil
}

func (m *memUserRepo) ChildrenOf(_ context.Context, parentID string) ([]*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.User
	for _, u := range m.users {
		if u.ParentID == parentID {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (m *memUserRepo) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.users)), nil
}

func (m *memUserRepo) CountActive(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, u := range m.users {
		if u.IsActive {
			n++
		}
	}
	return n, nil
}

func (m *memUserRepo) CountByRoles(_ context.Context, roles ...entity.Role) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, u := range m.users {
		for _, r := range roles {
			if u.Role == r {
				n++
				break
			}
		}
	}
	return n, nil
}

func (m *memUserRepo) CountCreatedSince(_ context.Context, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, u := range m.users {
		if !u.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memUserRepo) RoleDistribution(_ context.Context) ([]repo.RoleCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[entity.Role]int64{}
	for _, u := range m.users {
		counts[u.Role]++
	}
	var out []repo.RoleCount
	for r, n := range counts {
		out = append(out, repo.RoleCount{Role: r, Count: n})
	}
	return out, nil
}

func (m *memUserRepo) RegistrationsByMonth(_ context.Context, _, _ *time.Time) ([]repo.RegistrationBucket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[[3]any]int64{}
	var out []repo.RegistrationBucket
	for _, u := range m.users {
		key := [3]any{u.CreatedAt.Year(), int(u.CreatedAt.Month()), u.Role}
		counts[key]++
	}
	for k, n := range counts {
		out = append(out, repo.RegistrationBucket{
			Year: k[0].(int), Month: k[1].(int), Role: k[2].(entity.Role), Count: n,
		})
	}
	return out, nil
}

var _ repo.UserRepository = (*memUserRepo)(nil)

// fakeSender records sends and can be told to fail.
type fakeSender struct {
	mu    sync.Mutex
	sent  []string
	fail  bool
	links []string // text bodies for link extraction
}

func (f *fakeSender) Send(_ context.Context, to, _, text, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("gateway down")
	}
	f.sent = append(f.sent, to)
	f.links = append(f.links, text)
	return nil
}

func (f *fakeSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// fakePublisher records enqueued jobs.
type fakePublisher struct {
	mu   sync.Mutex
	jobs []any
}

func (f *fakePublisher) PublishJSON(_ context.Context, body any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, body)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}
