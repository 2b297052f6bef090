package usecase

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"mess-backend/internal/domain"
)

type UserRepo interface {
	PutUser(*domain.User) error
	GetUser(id string) (*domain.User, bool)
	GetUserByEmail(email string) (*domain.User, bool)
}

type AuthService struct {
	Repo      UserRepo
	JWTSecret string
}

func (s *AuthService) Signup(name, email, password string, userType domain.UserType) (string, *domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return "", nil, ErrBadRequest("email and password required")
	}
	if userType != domain.UserStudent && userType != domain.UserOwner {
		return "", nil, ErrBadRequest("invalid user type")
	}
	if _, ok := s.Repo.GetUserByEmail(email); ok {
		return "", nil, ErrConflict("email already registered")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       randomID(),
		Name:         strings.TrimSpace(name),
		Email:        email,
		UserType:     userType,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.PutUser(u); err != nil {
		return "", nil, err
	}
	token, err := s.token(u)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *AuthService) Login(email, password string) (string, *domain.User, error) {
	u, ok := s.Repo.GetUserByEmail(strings.ToLower(strings.TrimSpace(email)))
	if !ok {
		return "", nil, ErrNotFound("user")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrBadRequest("invalid credentials")
	}
	token, err := s.token(u)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *AuthService) Verify(token string) (string, domain.UserType, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return []byte(s.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return "", "", ErrBadRequest("invalid token")
	}
	m, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", ErrNotFound("claims")
	}
	uid, _ := m["user_id"].(string)
	ut, _ := m["user_type"].(string)
	return uid, domain.UserType(ut), nil
}

func (s *AuthService) User(id string) (*domain.User, error) {
	u, ok := s.Repo.GetUser(id)
	if !ok {
		return nil, ErrNotFound("user")
	}
	return u, nil
}

func (s *AuthService) UpdateAddress(userID string, addr *domain.Address) (*domain.User, error) {
	u, ok := s.Repo.GetUser(userID)
	if !ok {
		return nil, ErrNotFound("user")
	}
	u.Address = addr
	u.UpdatedAt = time.Now().UTC()
	if err := s.Repo.PutUser(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) token(u *domain.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":   u.UserID,
		"user_type": string(u.UserType),
		"exp":       time.Now().Add(7 * 24 * time.Hour).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.JWTSecret))
}

func randomID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
