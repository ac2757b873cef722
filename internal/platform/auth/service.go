package auth

import (
	"context"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"LMS-backend/internal/membership"
	"LMS-backend/internal/platform/apperr"
)

type Service struct {
	store  *membership.Store
	secret []byte
}

func NewService(store *membership.Store, secret []byte) *Service {
	return &Service{store: store, secret: secret}
}

// Login はメールアドレスとパスワードを検証してトークンを発行する。
// 凍結済みアカウントはトークン発行前に弾く。
func (s *Service) Login(ctx context.Context, email, password string) (string, *membership.UserResponse, error) {
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if u == nil {
		return "", nil, apperr.ErrInvalid("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, apperr.ErrInvalid("invalid email or password")
	}
	if !u.IsActive {
		return "", nil, apperr.ErrForbidden("account is inactive")
	}

	token, err := s.issueToken(u)
	if err != nil {
		return "", nil, err
	}
	resp := membership.BuildUserResponse(u)
	return token, &resp, nil
}

type SignupInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string // 未指定なら member
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (string, *membership.UserResponse, error) {
	if in.Email == "" || in.Password == "" || in.FirstName == "" || in.LastName == "" {
		return "", nil, apperr.ErrInvalid("all fields are required")
	}

	exists, err := s.store.GetByEmail(ctx, in.Email)
	if err != nil {
		return "", nil, err
	}
	if exists != nil {
		return "", nil, apperr.ErrConflict("user with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}

	role := in.Role
	if role == "" {
		role = membership.RoleMember
	}

	u := &membership.User{
		Email:        in.Email,
		PasswordHash: string(hash),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         role,
		IsActive:     true,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	if err := s.store.Create(ctx, u); err != nil {
		return "", nil, err
	}

	token, err := s.issueToken(u)
	if err != nil {
		return "", nil, err
	}
	resp := membership.BuildUserResponse(u)
	return token, &resp, nil
}

// Profile はトークンの持ち主自身のプロフィールを返す
func (s *Service) Profile(ctx context.Context, userID int64) (*membership.UserResponse, error) {
	u, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := membership.BuildUserResponse(u)
	return &resp, nil
}

func (s *Service) issueToken(u *membership.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  strconv.FormatInt(u.ID, 10),
		"role": u.Role,
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
	})
	return token.SignedString(s.secret)
}
