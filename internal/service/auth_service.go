package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"visualroutine/internal/credentials"
	"visualroutine/internal/models"
	"visualroutine/internal/repository"
	"visualroutine/internal/security"
	"visualroutine/internal/validation"
)

var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidPIN         = errors.New("incorrect PIN")
)

// Session is an issued bearer token
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthService handles caregiver authentication and the child-mode PIN
type AuthService struct {
	userRepo *repository.UserRepository
	tokens   *security.TokenIssuer
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo *repository.UserRepository, tokens *security.TokenIssuer) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

// Register creates a new caregiver account and signs it in
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*Session, *models.User, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, nil, err
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, nil, err
	}

	existingUser, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		return nil, nil, ErrEmailTaken
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Email: email, PasswordHash: passwordHash, Name: name}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	session, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

// Login authenticates a caregiver and issues a token
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, *models.User, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, nil, ErrInvalidCredentials
	}

	if !security.CheckPassword(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

// ValidateToken checks a bearer token and returns the associated user
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetUserByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}
	return user, nil
}

// OAuthLogin authenticates or creates a user using an OAuth provider
func (s *AuthService) OAuthLogin(ctx context.Context, provider, subject, email, name string) (*Session, *models.User, error) {
	if provider == "" || subject == "" {
		return nil, nil, errors.New("missing oauth provider information")
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, nil, err
	}

	user, err := s.userRepo.GetUserByOAuth(ctx, provider, subject)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lookup oauth user: %w", err)
	}

	if user == nil {
		existingUser, err := s.userRepo.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check existing user: %w", err)
		}
		if existingUser != nil {
			if existingUser.OAuthProvider != "" && existingUser.OAuthProvider != provider {
				return nil, nil, ErrEmailTaken
			}
			if err := s.userRepo.LinkOAuthProvider(ctx, existingUser.ID, provider, subject); err != nil {
				return nil, nil, fmt.Errorf("failed to link oauth provider: %w", err)
			}
			existingUser.OAuthProvider = provider
			existingUser.OAuthSubject = subject
			user = existingUser
		} else {
			if name == "" {
				name = strings.Split(email, "@")[0]
			}
			randomPasswordHash, err := security.HashPassword(uuid.NewString())
			if err != nil {
				return nil, nil, fmt.Errorf("failed to generate oauth password hash: %w", err)
			}
			user = &models.User{
				Email:         email,
				PasswordHash:  randomPasswordHash,
				Name:          name,
				OAuthProvider: provider,
				OAuthSubject:  subject,
			}
			if err := s.userRepo.CreateUser(ctx, user); err != nil {
				return nil, nil, fmt.Errorf("failed to create oauth user: %w", err)
			}
			log.Printf("Created %s user %s", provider, user.ID)
		}
	}

	session, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

// SetChildPIN stores a new child-mode PIN. An empty pin removes the lock.
func (s *AuthService) SetChildPIN(ctx context.Context, userID, pin string) error {
	hash := ""
	if pin != "" {
		var err error
		hash, err = credentials.HashPIN(pin)
		if err != nil {
			return err
		}
	}
	if err := s.userRepo.SetChildPINHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to save child PIN: %w", err)
	}
	return nil
}

// VerifyChildPIN checks the PIN that unlocks caregiver mode. With no PIN configured
// every attempt succeeds.
func (s *AuthService) VerifyChildPIN(ctx context.Context, userID, pin string) error {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return ErrSessionNotFound
	}

	ok, err := credentials.VerifyPIN(pin, user.ChildPINHash)
	if errors.Is(err, credentials.ErrPINNotSet) {
		return nil
	}
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidPIN
	}
	return nil
}

func (s *AuthService) issue(user *models.User) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: expiresAt}, nil
}
