package membership

import "time"

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// User は users テーブルの1行を表す。物理削除はしない。
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
}
