package membership

import (
	"context"
	"database/sql"

	"LMS-backend/internal/platform/apperr"
)

type Service struct {
	store *Store
}

func NewService(conn *sql.DB) *Service {
	return &Service{store: NewStore(conn)}
}

// auth 層から使う
func (s *Service) Store() *Store { return s.store }

func (s *Service) ListMembers(ctx context.Context) ([]UserResponse, error) {
	users, err := s.store.ListMembers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, BuildUserResponse(&users[i]))
	}
	return out, nil
}

func (s *Service) MemberStats(ctx context.Context) (*MemberStatsResponse, error) {
	total, active, err := s.store.MemberStats(ctx)
	if err != nil {
		return nil, err
	}
	return &MemberStatsResponse{
		TotalMembers:   total,
		ActiveMembers:  active,
		BlockedMembers: total - active,
	}, nil
}

func (s *Service) SetMemberActive(ctx context.Context, id int64, active bool) (*UserResponse, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != RoleMember {
		return nil, apperr.ErrNotFound("member not found")
	}

	if err := s.store.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	u.IsActive = active
	resp := BuildUserResponse(u)
	return &resp, nil
}
