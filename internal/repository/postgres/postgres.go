package postgres

import (
	"SnapLink-Backend/internal/domain"
	"SnapLink-Backend/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PostgresStorage реализует интерфейс Storage для PostgreSQL
type PostgresStorage struct {
	db  *gorm.DB
	log *zap.Logger
}

// New создает новый экземпляр PostgreSQL storage
func New(db *gorm.DB, log *zap.Logger) *PostgresStorage {
	return &PostgresStorage{
		db:  db,
		log: log,
	}
}

// --- Link Methods ---

// SaveLink сохраняет новую ссылку. Коллизия кода отдается как
// ErrCodeExists через уникальный индекс, без check-then-write.
func (s *PostgresStorage) SaveLink(ctx context.Context, link *domain.ShortLink) error {
	if err := s.db.WithContext(ctx).Create(link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repository.ErrCodeExists
		}
		s.log.Error("failed to save link", zap.String("code", link.Code), zap.Error(err))
		return fmt.Errorf("failed to save link: %w", err)
	}

	s.log.Info("saved new link", zap.String("code", link.Code))
	return nil
}

// GetActiveLink получает активную ссылку по коду. Истечение срока здесь
// не проверяется: сервису нужна истекшая ссылка, чтобы показать страницу
// истечения.
func (s *PostgresStorage) GetActiveLink(ctx context.Context, code string) (*domain.ShortLink, error) {
	var link domain.ShortLink

	err := s.db.WithContext(ctx).Where("code = ? AND is_active = ?", code, true).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrCodeNotFound
	}
	if err != nil {
		s.log.Error("failed to get link", zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return &link, nil
}

// GetLink получает ссылку по коду независимо от is_active
func (s *PostgresStorage) GetLink(ctx context.Context, code string) (*domain.ShortLink, error) {
	var link domain.ShortLink

	err := s.db.WithContext(ctx).Where("code = ?", code).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrCodeNotFound
	}
	if err != nil {
		s.log.Error("failed to get link", zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return &link, nil
}

// DeactivateLink деактивирует ссылку (мягкое удаление): код остается
// занятым и недоступен для повторной выдачи
func (s *PostgresStorage) DeactivateLink(ctx context.Context, code string) error {
	result := s.db.WithContext(ctx).Model(&domain.ShortLink{}).
		Where("code = ?", code).Update("is_active", false)
	if result.Error != nil {
		s.log.Error("failed to deactivate link", zap.String("code", code), zap.Error(result.Error))
		return fmt.Errorf("failed to deactivate link: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return repository.ErrCodeNotFound
	}

	s.log.Info("deactivated link", zap.String("code", code))
	return nil
}

// ListUserLinks возвращает активные ссылки пользователя со смещением
func (s *PostgresStorage) ListUserLinks(ctx context.Context, userID int64, limit, offset int) ([]*domain.ShortLink, error) {
	var links []*domain.ShortLink

	err := s.db.WithContext(ctx).
		Where("created_by = ? AND is_active = ?", userID, true).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&links).Error
	if err != nil {
		s.log.Error("failed to list user links", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to list user links: %w", err)
	}

	return links, nil
}

// RecordClick записывает клик и обновляет счетчик ссылки в одной
// транзакции. Инкремент выполняется SQL-выражением, а не
// read-modify-write, чтобы параллельные редиректы не теряли клики.
func (s *PostgresStorage) RecordClick(ctx context.Context, click *domain.Click) error {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(click).Error; err != nil {
		tx.Rollback()
		s.log.Error("failed to create click record", zap.Int64("link_id", click.LinkID), zap.Error(err))
		return fmt.Errorf("failed to create click: %w", err)
	}

	result := tx.Model(&domain.ShortLink{}).
		Where("id = ?", click.LinkID).
		Updates(map[string]interface{}{
			"click_count":     gorm.Expr("click_count + 1"),
			"last_clicked_at": click.ClickedAt,
		})
	if result.Error != nil {
		tx.Rollback()
		s.log.Error("failed to update click count", zap.Int64("link_id", click.LinkID), zap.Error(result.Error))
		return fmt.Errorf("failed to update click count: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return repository.ErrCodeNotFound
	}

	if err := tx.Commit().Error; err != nil {
		s.log.Error("failed to commit click transaction", zap.Int64("link_id", click.LinkID), zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// --- User Methods ---

// CreateUser создает нового пользователя
func (s *PostgresStorage) CreateUser(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	user := domain.User{
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, repository.ErrEmailExists
		}
		s.log.Error("failed to create user", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("created new user", zap.Int64("user_id", user.ID))
	return &user, nil
}

// GetUserByEmail получает активного пользователя по email
func (s *PostgresStorage) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User

	err := s.db.WithContext(ctx).Where("email = ? AND is_active = ?", email, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		s.log.Error("failed to get user by email", zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// GetUserByID получает пользователя по ID
func (s *PostgresStorage) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User

	err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		s.log.Error("failed to get user by id", zap.Int64("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// --- Aggregate Methods ---

// CountActiveLinks возвращает количество активных ссылок
func (s *PostgresStorage) CountActiveLinks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.ShortLink{}).
		Where("is_active = ?", true).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count active links: %w", err)
	}
	return count, nil
}

// CountClicks возвращает общее количество кликов
func (s *PostgresStorage) CountClicks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Click{}).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count clicks: %w", err)
	}
	return count, nil
}

// CountClicksSince возвращает количество кликов начиная с указанного момента
func (s *PostgresStorage) CountClicksSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Click{}).
		Where("clicked_at >= ?", since).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count clicks since %s: %w", since, err)
	}
	return count, nil
}

// DailyClicks возвращает клики ссылки по дням за скользящее окно
func (s *PostgresStorage) DailyClicks(ctx context.Context, linkID int64, days int) ([]repository.DailyCount, error) {
	since := time.Now().AddDate(0, 0, -days)

	var results []repository.DailyCount
	err := s.db.WithContext(ctx).
		Model(&domain.Click{}).
		Select("date_trunc('day', clicked_at) AS day, count(*) AS count").
		Where("link_id = ? AND clicked_at >= ?", linkID, since).
		Group("day").
		Order("day").
		Find(&results).Error
	if err != nil {
		s.log.Error("failed to get daily clicks", zap.Int64("link_id", linkID), zap.Error(err))
		return nil, fmt.Errorf("failed to get daily clicks: %w", err)
	}

	return results, nil
}

// TopBrowsers возвращает топ браузеров по кликам для ссылки
func (s *PostgresStorage) TopBrowsers(ctx context.Context, linkID int64, limit int) ([]repository.FieldCount, error) {
	return s.topField(ctx, linkID, "browser", limit)
}

// TopOS возвращает топ операционных систем по кликам для ссылки
func (s *PostgresStorage) TopOS(ctx context.Context, linkID int64, limit int) ([]repository.FieldCount, error) {
	return s.topField(ctx, linkID, "os", limit)
}

// topField группирует клики ссылки по одному денормализованному полю
func (s *PostgresStorage) topField(ctx context.Context, linkID int64, column string, limit int) ([]repository.FieldCount, error) {
	var results []repository.FieldCount
	err := s.db.WithContext(ctx).
		Model(&domain.Click{}).
		Select(fmt.Sprintf("COALESCE(%s, '') AS name, count(*) AS count", column)).
		Where("link_id = ?", linkID).
		Group("name").
		Order("count DESC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		s.log.Error("failed to get top field counts",
			zap.Int64("link_id", linkID),
			zap.String("column", column),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get top %s: %w", column, err)
	}

	return results, nil
}

// RecentClicks возвращает последние клики ссылки, новые первыми
func (s *PostgresStorage) RecentClicks(ctx context.Context, linkID int64, limit int) ([]*domain.Click, error) {
	var clicks []*domain.Click

	err := s.db.WithContext(ctx).
		Where("link_id = ?", linkID).
		Order("clicked_at DESC").
		Limit(limit).
		Find(&clicks).Error
	if err != nil {
		s.log.Error("failed to list recent clicks", zap.Int64("link_id", linkID), zap.Error(err))
		return nil, fmt.Errorf("failed to list recent clicks: %w", err)
	}

	return clicks, nil
}

// TopLinks возвращает активные ссылки с наибольшим количеством кликов
func (s *PostgresStorage) TopLinks(ctx context.Context, limit int) ([]*domain.ShortLink, error) {
	var links []*domain.ShortLink

	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("click_count DESC").
		Limit(limit).
		Find(&links).Error
	if err != nil {
		s.log.Error("failed to list top links", zap.Error(err))
		return nil, fmt.Errorf("failed to list top links: %w", err)
	}

	return links, nil
}
