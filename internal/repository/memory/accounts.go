// Package memory provides in-memory implementations of the repository
// interfaces. They back the memory storage drivers and the tests.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/listing-platform/internal/model"
	"github.com/iliyamo/listing-platform/internal/repository"
)

// AccountStore is an in-memory account directory. Emails are compared
// case-insensitively, matching the MySQL collation.
type AccountStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]model.Account
}

func NewAccountStore() *AccountStore {
	return &AccountStore{byID: map[int64]model.Account{}}
}

func (s *AccountStore) Create(_ context.Context, a *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if existing.Username == a.Username {
			return repository.ErrUsernameTaken
		}
		if strings.EqualFold(existing.Email, a.Email) {
			return repository.ErrEmailTaken
		}
	}
	s.nextID++
	a.ID = s.nextID
	s.byID[a.ID] = *a
	return nil
}

func (s *AccountStore) GetByID(_ context.Context, id int64) (model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok {
		return model.Account{}, repository.ErrNotFound
	}
	return a, nil
}

func (s *AccountStore) GetByUsername(_ context.Context, username string) (model.Account, error) {
	return s.find(func(a model.Account) bool { return a.Username == username })
}

func (s *AccountStore) GetByEmail(_ context.Context, email string) (model.Account, error) {
	return s.find(func(a model.Account) bool { return strings.EqualFold(a.Email, email) })
}

func (s *AccountStore) find(match func(model.Account) bool) (model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.byID {
		if match(a) {
			return a, nil
		}
	}
	return model.Account{}, repository.ErrNotFound
}

func (s *AccountStore) UpdateProfile(_ context.Context, id int64, u model.ProfileUpdate) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return model.Account{}, repository.ErrNotFound
	}
	if u.Email != nil {
		for otherID, other := range s.byID {
			if otherID != id && strings.EqualFold(other.Email, *u.Email) {
				return model.Account{}, repository.ErrEmailTaken
			}
		}
		a.Email = *u.Email
	}
	if u.FirstName != nil {
		a.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		a.LastName = *u.LastName
	}
	s.byID[id] = a
	return a, nil
}

// SetPrivileges is used by tests and local seeding to grant admin flags.
func (s *AccountStore) SetPrivileges(id int64, staff, superuser bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.IsStaff, a.IsSuperuser = staff, superuser
	s.byID[id] = a
	return nil
}

// SetActive toggles the is_active flag.
func (s *AccountStore) SetActive(id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.IsActive = active
	s.byID[id] = a
	return nil
}

// Len returns the number of stored accounts.
func (s *AccountStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// TokenStore keeps token hashes with at most one token per account.
type TokenStore struct {
	mu        sync.RWMutex
	byHash    map[string]int64
	byAccount map[int64]string
}

func NewTokenStore() *TokenStore {
	return &TokenStore{byHash: map[string]int64{}, byAccount: map[int64]string{}}
}

func (s *TokenStore) Replace(_ context.Context, accountID int64, tokenHash string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byAccount[accountID]; ok {
		delete(s.byHash, old)
	}
	if prevOwner, ok := s.byHash[tokenHash]; ok {
		delete(s.byAccount, prevOwner)
	}
	s.byHash[tokenHash] = accountID
	s.byAccount[accountID] = tokenHash
	return nil
}

func (s *TokenStore) AccountID(_ context.Context, tokenHash string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byHash[tokenHash]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return id, nil
}

func (s *TokenStore) Delete(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byHash[tokenHash]
	if !ok {
		return repository.ErrNotFound
	}
	delete(s.byHash, tokenHash)
	delete(s.byAccount, id)
	return nil
}

var (
	_ repository.AccountRepository = (*AccountStore)(nil)
	_ repository.TokenRepository   = (*TokenStore)(nil)
)
