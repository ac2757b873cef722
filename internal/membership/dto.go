package membership

import "time"

type UserResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"password"` // 常に空。フロント互換のためキーだけ残す
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

type UpdateMemberRequest struct {
	IsActive *bool `json:"isActive"`
}

type MemberStatsResponse struct {
	TotalMembers   int `json:"totalMembers"`
	ActiveMembers  int `json:"activeMembers"`
	BlockedMembers int `json:"blockedMembers"`
}

func BuildUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}
