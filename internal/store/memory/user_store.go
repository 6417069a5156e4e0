package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/logicore/internal/models"
	"github.com/wolfeidau/logicore/internal/store"
)

// UserStore implements store.UserStore in memory.
type UserStore struct {
	mu          sync.RWMutex
	users       map[uuid.UUID]*models.User
	credentials map[uuid.UUID]*models.PasswordCredential
}

func NewUserStore() *UserStore {
	return &UserStore{
		users:       make(map[uuid.UUID]*models.User),
		credentials: make(map[uuid.UUID]*models.PasswordCredential),
	}
}

func (s *UserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *user
	s.users[user.UserID] = &cp
	return nil
}

func (s *UserStore) GetByID(_ context.Context, userID uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u := s.users[userID]
	if u == nil || u.DeletedAt != nil {
		return nil, store.ErrUserNotFound
	}

	cp := *u
	return &cp, nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email != nil && strings.EqualFold(*u.Email, email) && u.DeletedAt == nil {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *UserStore) UpsertFromSSO(_ context.Context, profile store.SSOProfile) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email != nil && strings.EqualFold(*u.Email, profile.Email) && u.DeletedAt == nil {
			u.DisplayName = profile.DisplayName
			u.AvatarURL = profile.AvatarURL
			u.UpdatedAt = time.Now()
			cp := *u
			return &cp, nil
		}
	}

	now := time.Now()
	email := profile.Email
	u := &models.User{
		UserID:      uuid.New(),
		Email:       &email,
		DisplayName: profile.DisplayName,
		AvatarURL:   profile.AvatarURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.users[u.UserID] = u

	cp := *u
	return &cp, nil
}

func (s *UserStore) CreateCredential(_ context.Context, cred *models.PasswordCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.credentials {
		if existing.OrgID == cred.OrgID && existing.Username == cred.Username {
			return store.ErrUsernameTaken
		}
	}

	cp := *cred
	s.credentials[cred.CredentialID] = &cp
	return nil
}

func (s *UserStore) FindCredentials(_ context.Context, username string) ([]*models.PasswordCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.PasswordCredential
	for _, cred := range s.credentials {
		if cred.Username == username && cred.Enabled {
			cp := *cred
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *UserStore) get(userID uuid.UUID) *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[userID]
}
