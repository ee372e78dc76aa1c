package admin

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dentalcare/clinic/pkg/apperr"
	"github.com/dentalcare/clinic/pkg/pagination"
)

// In-memory repositories back the dev server and the tests.

type branchRepoMem struct {
	mu    sync.RWMutex
	items map[uuid.UUID]Branch
}

func NewBranchRepoMem() BranchRepository {
	return &branchRepoMem{items: make(map[uuid.UUID]Branch)}
}

func (m *branchRepoMem) Create(_ context.Context, b *Branch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if b.Code != "" && existing.Code == b.Code {
			return apperr.Conflict("branch " + b.Code)
		}
	}
	b.ID = uuid.New()
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	m.items[b.ID] = *b
	return nil
}

func (m *branchRepoMem) GetByID(_ context.Context, id uuid.UUID) (*Branch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("branch")
	}
	return &b, nil
}

func (m *branchRepoMem) Update(_ context.Context, b *Branch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.items[b.ID]
	if !ok {
		return apperr.NotFound("branch")
	}
	for id, existing := range m.items {
		if id != b.ID && b.Code != "" && existing.Code == b.Code {
			return apperr.Conflict("branch " + b.Code)
		}
	}
	b.CreatedAt = prev.CreatedAt
	b.UpdatedAt = time.Now()
	m.items[b.ID] = *b
	return nil
}

func (m *branchRepoMem) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return apperr.NotFound("branch")
	}
	delete(m.items, id)
	return nil
}

func (m *branchRepoMem) List(_ context.Context, activeOnly bool, limit, offset int) ([]*Branch, int, error) {
	m.mu.RLock()
	var out []*Branch
	for _, b := range m.items {
		if activeOnly && (b.Active == nil || !*b.Active) {
			continue
		}
		b := b
		out = append(out, &b)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return pagination.Window(out, limit, offset), len(out), nil
}

type serviceRepoMem struct {
	mu    sync.RWMutex
	items map[uuid.UUID]ClinicService
}

func NewClinicServiceRepoMem() ClinicServiceRepository {
	return &serviceRepoMem{items: make(map[uuid.UUID]ClinicService)}
}

func (m *serviceRepoMem) Create(_ context.Context, s *ClinicService) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if s.Code != "" && existing.Code == s.Code {
			return apperr.Conflict("service " + s.Code)
		}
	}
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	m.items[s.ID] = *s
	return nil
}

func (m *serviceRepoMem) GetByID(_ context.Context, id uuid.UUID) (*ClinicService, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("service")
	}
	return &s, nil
}

func (m *serviceRepoMem) Update(_ context.Context, s *ClinicService) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.items[s.ID]
	if !ok {
		return apperr.NotFound("service")
	}
	for id, existing := range m.items {
		if id != s.ID && s.Code != "" && existing.Code == s.Code {
			return apperr.Conflict("service " + s.Code)
		}
	}
	s.CreatedAt = prev.CreatedAt
	s.UpdatedAt = time.Now()
	m.items[s.ID] = *s
	return nil
}

func (m *serviceRepoMem) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return apperr.NotFound("service")
	}
	delete(m.items, id)
	return nil
}

func (m *serviceRepoMem) List(_ context.Context, activeOnly bool, limit, offset int) ([]*ClinicService, int, error) {
	m.mu.RLock()
	var out []*ClinicService
	for _, s := range m.items {
		if activeOnly && (s.Active == nil || !*s.Active) {
			continue
		}
		s := s
		out = append(out, &s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return pagination.Window(out, limit, offset), len(out), nil
}

type userRepoMem struct {
	mu    sync.RWMutex
	items map[uuid.UUID]User
}

func NewUserRepoMem() UserRepository {
	return &userRepoMem{items: make(map[uuid.UUID]User)}
}

func (m *userRepoMem) clashLocked(u *User) error {
	for id, existing := range m.items {
		if id == u.ID {
			continue
		}
		if strings.EqualFold(existing.Email, u.Email) {
			return apperr.Conflict("user " + u.Email)
		}
		if u.AccountID != "" && existing.AccountID == u.AccountID {
			return apperr.Conflict("user " + u.AccountID)
		}
	}
	return nil
}

func (m *userRepoMem) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = uuid.New()
	u.Email = strings.ToLower(u.Email)
	if err := m.clashLocked(u); err != nil {
		return err
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.items[u.ID] = *u
	return nil
}

func (m *userRepoMem) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("user")
	}
	return &u, nil
}

func (m *userRepoMem) GetByLogin(_ context.Context, login string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.items {
		if strings.EqualFold(u.Email, login) || u.AccountID == login {
			return &u, nil
		}
	}
	return nil, apperr.NotFound("user")
}

// mutate applies fn to the stored user under the write lock.
func (m *userRepoMem) mutate(id uuid.UUID, fn func(u *User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.items[id]
	if !ok {
		return apperr.NotFound("user")
	}
	fn(&u)
	u.UpdatedAt = time.Now()
	m.items[id] = u
	return nil
}

func (m *userRepoMem) Update(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.items[u.ID]
	if !ok {
		return apperr.NotFound("user")
	}
	u.Email = strings.ToLower(u.Email)
	if err := m.clashLocked(u); err != nil {
		return err
	}
	prev.Name = u.Name
	prev.Email = u.Email
	prev.Phone = u.Phone
	prev.Role = u.Role
	prev.BranchID = u.BranchID
	prev.Qualification = u.Qualification
	prev.UpdatedAt = time.Now()
	m.items[u.ID] = prev
	u.UpdatedAt = prev.UpdatedAt
	return nil
}

func (m *userRepoMem) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	return m.mutate(id, func(u *User) { u.Status = status })
}

func (m *userRepoMem) SetPassword(_ context.Context, id uuid.UUID, hash string) error {
	return m.mutate(id, func(u *User) { u.PasswordHash = hash })
}

func (m *userRepoMem) SetPhoto(_ context.Context, id uuid.UUID, url, photoID string) error {
	return m.mutate(id, func(u *User) {
		u.PhotoURL = url
		u.PhotoID = photoID
	})
}

func (m *userRepoMem) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return apperr.NotFound("user")
	}
	delete(m.items, id)
	return nil
}

func (m *userRepoMem) List(_ context.Context, f UserFilter, limit, offset int) ([]*User, int, error) {
	m.mu.RLock()
	var out []*User
	for _, u := range m.items {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Status != "" && u.Status != f.Status {
			continue
		}
		if f.BranchID != nil && (u.BranchID == nil || *u.BranchID != *f.BranchID) {
			continue
		}
		u := u
		out = append(out, &u)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return pagination.Window(out, limit, offset), len(out), nil
}

type otpRepoMem struct {
	mu    sync.Mutex
	items map[string]OTP
}

func NewOTPRepoMem() OTPRepository {
	return &otpRepoMem{items: make(map[string]OTP)}
}

func (m *otpRepoMem) Save(_ context.Context, o *OTP) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.Email = strings.ToLower(o.Email)
	o.Attempts = 0
	o.CreatedAt = time.Now()
	m.items[o.Email] = *o
	return nil
}

func (m *otpRepoMem) Get(_ context.Context, email string) (*OTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.items[strings.ToLower(email)]
	if !ok {
		return nil, apperr.NotFound("otp")
	}
	return &o, nil
}

func (m *otpRepoMem) IncrementAttempts(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(email)
	o, ok := m.items[key]
	if !ok {
		return apperr.NotFound("otp")
	}
	o.Attempts++
	m.items[key] = o
	return nil
}

func (m *otpRepoMem) Delete(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(email)
	if _, ok := m.items[key]; !ok {
		return apperr.NotFound("otp")
	}
	delete(m.items, key)
	return nil
}
