package domain

import "time"

// User представляет владельца ссылок. Создание ссылок доступно и анонимно,
// аккаунт нужен только для списка своих ссылок и деактивации.
type User struct {
	ID           int64      `gorm:"primaryKey;column:id" json:"id"`
	Email        string     `gorm:"column:email;uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"column:password_hash;not null" json:"-"` // скрываем хеш в JSON
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at" json:"last_login_at,omitempty"`
	IsActive     bool       `gorm:"column:is_active;not null;default:true" json:"is_active"`

	// Relationships
	Links []ShortLink `gorm:"foreignKey:CreatedBy" json:"links,omitempty"`
}

// TableName возвращает название таблицы для GORM
func (User) TableName() string {
	return "users"
}
