package repository

import (
	"SnapLink-Backend/internal/domain"
	"context"
	"errors"
	"time"
)

var (
	ErrCodeNotFound = errors.New("short code not found")
	ErrCodeExists   = errors.New("short code already exists")
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already registered")
)

// DailyCount количество кликов за один календарный день
type DailyCount struct {
	Day   time.Time `json:"day"`
	Count int64     `json:"count"`
}

// FieldCount количество кликов для одного значения поля (браузер, ОС)
type FieldCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type Storage interface {
	// Link methods
	//
	// SaveLink полагается на уникальный индекс по code: гонка двух
	// одновременных вставок разрешается на уровне хранилища и
	// возвращается как ErrCodeExists, без предварительной проверки.
	SaveLink(ctx context.Context, link *domain.ShortLink) error
	GetActiveLink(ctx context.Context, code string) (*domain.ShortLink, error)
	GetLink(ctx context.Context, code string) (*domain.ShortLink, error)
	DeactivateLink(ctx context.Context, code string) error
	ListUserLinks(ctx context.Context, userID int64, limit, offset int) ([]*domain.ShortLink, error)

	// RecordClick атомарно вставляет клик и обновляет счетчик и
	// last_clicked_at ссылки: либо обе записи, либо ни одной.
	RecordClick(ctx context.Context, click *domain.Click) error

	// User methods
	CreateUser(ctx context.Context, email, passwordHash string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)

	// Aggregate methods для дашборда и статистики ссылок
	CountActiveLinks(ctx context.Context) (int64, error)
	CountClicks(ctx context.Context) (int64, error)
	CountClicksSince(ctx context.Context, since time.Time) (int64, error)
	DailyClicks(ctx context.Context, linkID int64, days int) ([]DailyCount, error)
	TopBrowsers(ctx context.Context, linkID int64, limit int) ([]FieldCount, error)
	TopOS(ctx context.Context, linkID int64, limit int) ([]FieldCount, error)
	RecentClicks(ctx context.Context, linkID int64, limit int) ([]*domain.Click, error)
	TopLinks(ctx context.Context, limit int) ([]*domain.ShortLink, error)
}
