package auth

import (
	"time"

	"github.com/google/uuid"
)

// 账号来源
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// User 当前登录用户，应用只持有它的临时引用
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Provider    string `json:"provider"`
}

// Account 身份提供方保存的账号记录
type Account struct {
	ID             uuid.UUID `db:"id"`
	Email          string    `db:"email"`
	DisplayName    string    `db:"display_name"`
	Provider       string    `db:"provider"`
	ProviderUserID string    `db:"provider_user_id"`
	PasswordHash   string    `db:"password_hash"`
	CreatedAt      time.Time `db:"created_at"`
}

// User 转换为对外暴露的用户信息
func (a *Account) User() *User {
	return &User{
		ID:          a.ID.String(),
		Email:       a.Email,
		DisplayName: a.DisplayName,
		Provider:    a.Provider,
	}
}
