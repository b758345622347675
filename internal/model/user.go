// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashにはbcryptダイジェストのみを保持し、平文パスワードは保持しない。
type User struct {
	ID           string
	Email        string
	Name         string
	PhoneNumber  string
	PasswordHash string
	IsActive     bool
	IsStaff      bool
	IsSuperuser  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Token はAPIアクセス用の不透明トークンを表す。
// IDそのものがトークン値であり、Authorizationヘッダーで提示される。
type Token struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
