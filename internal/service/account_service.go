package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"userapi/internal/auth"
	"userapi/internal/cache"
	apperrors "userapi/internal/errors"
	"userapi/internal/model"
	"userapi/internal/repository"
)

const profileCacheTTL = 5 * time.Minute

// reservedKeys are denied in the generic merge path: identity and
// credential fields change only through their dedicated flows.
var reservedKeys = map[string]bool{
	"id":            true,
	"username":      true,
	"password":      true,
	"oldPassword":   true,
	"passwordHash":  true,
	"password_hash": true,
}

// Profile is the authenticated read view of a user. Nothing beyond name and
// username is ever exposed here.
type Profile struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

// PublicUser is the sanitized listing view backing the public index.
type PublicUser struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Username string         `json:"username"`
	Profile  map[string]any `json:"profile,omitempty"`
}

// AccountService orchestrates registration, authentication, and account
// mutation. Every operation is an independent transaction against the store.
type AccountService interface {
	Register(ctx context.Context, username, password, name string, profile map[string]any) (*model.User, error)
	Authenticate(ctx context.Context, username, password string) (string, error)
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	UpdateProfile(ctx context.Context, userID string, patch map[string]any) error
	Delete(ctx context.Context, userID, password string) error
	ListUsers(ctx context.Context) ([]PublicUser, error)
}

type accountService struct {
	repo   repository.UserRepository
	hasher *auth.PasswordHasher
	tokens *auth.TokenService
	cache  *cache.Client
}

// NewAccountService creates a new account service.
func NewAccountService(repo repository.UserRepository, hasher *auth.PasswordHasher, tokens *auth.TokenService, cache *cache.Client) AccountService {
	return &accountService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		cache:  cache,
	}
}

func (s *accountService) cacheKey(userID string) string {
	return fmt.Sprintf("profile:%s", userID)
}

// Register creates a new user with a hashed password. The plaintext is
// discarded after hashing and never persisted.
func (s *accountService) Register(ctx context.Context, username, password, name string, profile map[string]any) (*model.User, error) {
	_, err := s.repo.FindByUsername(ctx, username)
	if err == nil {
		return nil, apperrors.ErrUsernameTaken
	}
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     username,
		Name:         name,
		PasswordHash: passwordHash,
		Profile:      sanitizeProfile(profile),
	}

	// The lookup above is not atomic with the insert; the store's unique
	// index decides races, surfacing the loser as ErrUsernameTaken.
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrUsernameTaken) {
			return nil, apperrors.ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// Authenticate verifies credentials and issues a token on the user's ID.
// Unknown usernames and wrong passwords fail identically.
func (s *accountService) Authenticate(ctx context.Context, username, password string) (string, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return "", apperrors.ErrInvalidCredentials
		}
		return "", err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", apperrors.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID.String())
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

// GetProfile returns the name and username of the authenticated user, with
// cache-aside reads.
func (s *accountService) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	if data, _ := s.cache.Get(ctx, s.cacheKey(userID)); data != nil {
		var cached Profile
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.ErrUserNotFound
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	profile := &Profile{Name: user.Name, Username: user.Username}
	if payload, err := json.Marshal(profile); err == nil {
		_ = s.cache.Set(ctx, s.cacheKey(userID), payload, profileCacheTTL)
	}
	return profile, nil
}

// UpdateProfile applies a partial update. A patch carrying both oldPassword
// and password is a password change: the old password is verified, the new
// hash persisted, and no other field is touched. Any other patch has its
// identity and credential keys stripped before the merge.
func (s *accountService) UpdateProfile(ctx context.Context, userID string, patch map[string]any) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return apperrors.ErrUserNotFound
	}

	oldPassword, hasOld := stringValue(patch, "oldPassword")
	newPassword, hasNew := stringValue(patch, "password")

	if hasOld && hasNew {
		user, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !s.hasher.Verify(oldPassword, user.PasswordHash) {
			return apperrors.ErrInvalidCredentials
		}

		passwordHash, err := s.hasher.Hash(newPassword)
		if err != nil {
			return err
		}
		if err := s.repo.UpdatePassword(ctx, id, passwordHash); err != nil {
			return err
		}
		_ = s.cache.Delete(ctx, s.cacheKey(userID))
		return nil
	}

	fields := make(map[string]any, len(patch))
	for key, value := range patch {
		if reservedKeys[key] {
			continue
		}
		fields[key] = value
	}
	if len(fields) == 0 {
		return nil
	}

	if err := s.repo.MergeProfile(ctx, id, fields); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, s.cacheKey(userID))
	return nil
}

// Delete removes the user permanently after verifying the current password.
func (s *accountService) Delete(ctx context.Context, userID, password string) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return apperrors.ErrUserNotFound
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return apperrors.ErrInvalidCredentials
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, s.cacheKey(userID))
	return nil
}

// ListUsers backs the public index with sanitized entries only.
func (s *accountService) ListUsers(ctx context.Context) ([]PublicUser, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	list := make([]PublicUser, 0, len(users))
	for _, user := range users {
		list = append(list, PublicUser{
			ID:       user.ID.String(),
			Name:     user.Name,
			Username: user.Username,
			Profile:  sanitizeProfile(user.Profile),
		})
	}
	return list, nil
}

// sanitizeProfile copies a profile document without reserved keys.
func sanitizeProfile(profile map[string]any) map[string]any {
	if len(profile) == 0 {
		return nil
	}
	clean := make(map[string]any, len(profile))
	for key, value := range profile {
		if reservedKeys[key] {
			continue
		}
		clean[key] = value
	}
	if len(clean) == 0 {
		return nil
	}
	return clean
}

func stringValue(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
