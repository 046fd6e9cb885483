package service

import (
	"SnapLink-Backend/internal/config"
	"SnapLink-Backend/internal/domain"
	"SnapLink-Backend/internal/repository"
	"SnapLink-Backend/pkg/geo"
	"SnapLink-Backend/pkg/random"
	"SnapLink-Backend/pkg/useragent"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrEmptyURL исходный URL пуст после обрезки пробелов
	ErrEmptyURL = errors.New("original url is empty")
	// ErrCodeTaken пользовательский код уже занят; не ретраится
	ErrCodeTaken = errors.New("custom code already taken")
	// ErrCodeSpaceExhausted лимит попыток генерации кода исчерпан
	ErrCodeSpaceExhausted = errors.New("failed to allocate a free short code")
	// ErrLinkNotFound код неизвестен или ссылка деактивирована
	ErrLinkNotFound = errors.New("link not found")
	// ErrLinkExpired срок действия ссылки истек; возвращается вместе со
	// ссылкой, чтобы обработчик мог показать страницу истечения
	ErrLinkExpired = errors.New("link expired")
)

// CreateLink входные данные аллокатора коротких кодов
type CreateLink struct {
	OriginalURL string
	CustomCode  string
	Title       string
	Description string
	// ExpiresInDays приходит из формы как строка; нечисловое значение
	// молча игнорируется — унаследованное поведение, сохраняется для
	// совместимости
	ExpiresInDays string
	CreatedBy     *int64
}

// RequestMeta метаданные запроса, передаваемые HTTP-слоем при редиректе
type RequestMeta struct {
	IPAddress string
	UserAgent string
	Referer   string
}

// ShortenerService аллокатор коротких кодов и регистратор кликов
type ShortenerService struct {
	storage    repository.Storage
	gen        *random.Generator
	classifier useragent.Classifier
	locator    geo.Resolver
	cfg        *config.Shortener
	log        *zap.Logger
}

// NewShortener создает новый сервис сокращения ссылок
func NewShortener(
	storage repository.Storage,
	gen *random.Generator,
	classifier useragent.Classifier,
	locator geo.Resolver,
	cfg *config.Shortener,
	log *zap.Logger,
) *ShortenerService {
	return &ShortenerService{
		storage:    storage,
		gen:        gen,
		classifier: classifier,
		locator:    locator,
		cfg:        cfg,
		log:        log,
	}
}

// Shorten создает новую короткую ссылку.
//
// Пользовательский код вставляется ровно один раз: занятый код дает
// ErrCodeTaken. Сгенерированный код ретраится на unique violation до
// MaxAttempts вместо бесконечного цикла.
func (s *ShortenerService) Shorten(ctx context.Context, in CreateLink) (*domain.ShortLink, error) {
	originalURL := strings.TrimSpace(in.OriginalURL)
	if originalURL == "" {
		return nil, ErrEmptyURL
	}
	originalURL = NormalizeURL(originalURL)

	link := &domain.ShortLink{
		OriginalURL: originalURL,
		CreatedBy:   in.CreatedBy,
		IsActive:    true,
	}
	if title := strings.TrimSpace(in.Title); title != "" {
		link.Title = &title
	}
	if desc := strings.TrimSpace(in.Description); desc != "" {
		link.Description = &desc
	}
	if days, err := strconv.Atoi(strings.TrimSpace(in.ExpiresInDays)); err == nil {
		expiresAt := time.Now().AddDate(0, 0, days)
		link.ExpiresAt = &expiresAt
	}

	if custom := strings.TrimSpace(in.CustomCode); custom != "" {
		link.Code = custom
		if err := s.storage.SaveLink(ctx, link); err != nil {
			if errors.Is(err, repository.ErrCodeExists) {
				return nil, ErrCodeTaken
			}
			return nil, fmt.Errorf("failed to save link: %w", err)
		}
		s.log.Info("created link with custom code", zap.String("code", link.Code))
		return link, nil
	}

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		link.Code = s.gen.NewCode(s.cfg.CodeLength)

		err := s.storage.SaveLink(ctx, link)
		if err == nil {
			s.log.Info("created link",
				zap.String("code", link.Code),
				zap.Int("attempt", attempt))
			return link, nil
		}
		if !errors.Is(err, repository.ErrCodeExists) {
			return nil, fmt.Errorf("failed to save link: %w", err)
		}

		s.log.Warn("generated code collided, retrying",
			zap.String("code", link.Code),
			zap.Int("attempt", attempt))
	}

	return nil, ErrCodeSpaceExhausted
}

// Resolve находит активную ссылку по коду, регистрирует клик и
// возвращает цель редиректа.
//
// Для истекшей ссылки клик не записывается: вызывающий получает саму
// ссылку вместе с ErrLinkExpired. Вставка клика и инкремент счетчика
// выполняются хранилищем атомарно.
func (s *ShortenerService) Resolve(ctx context.Context, code string, meta RequestMeta) (*domain.ShortLink, error) {
	link, err := s.storage.GetActiveLink(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	if link.IsExpired() {
		return link, ErrLinkExpired
	}

	now := time.Now()
	click := &domain.Click{
		LinkID:    link.ID,
		ClickedAt: now,
	}

	if ip := net.ParseIP(meta.IPAddress); ip != nil {
		click.IPAddress = &ip
	}
	if meta.UserAgent != "" {
		ua := meta.UserAgent
		click.UserAgent = &ua
	}
	if meta.Referer != "" {
		referer := meta.Referer
		click.Referer = &referer
	}

	// Классификация и геолокация best-effort: пустые строки не пишем
	c := s.classifier.Classify(meta.UserAgent)
	if c.Browser != "" {
		click.Browser = &c.Browser
	}
	if c.OS != "" {
		click.OS = &c.OS
	}
	if c.Device != "" {
		click.Device = &c.Device
	}

	loc := s.locator.Locate(ctx, meta.IPAddress)
	if loc.Country != "" {
		click.Country = &loc.Country
	}
	if loc.City != "" {
		click.City = &loc.City
	}

	if err := s.storage.RecordClick(ctx, click); err != nil {
		return nil, fmt.Errorf("failed to record click: %w", err)
	}

	// Отражаем запись в возвращаемой копии
	link.ClickCount++
	link.LastClickedAt = &now

	return link, nil
}

// NormalizeURL дополняет URL схемой https://, если схема не указана.
// Дальнейшей валидации нет: некорректный URL просто не откроется при
// переходе.
func NormalizeURL(rawURL string) string {
	if strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://") {
		return rawURL
	}
	return "https://" + rawURL
}
