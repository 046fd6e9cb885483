package memory

import (
	"SnapLink-Backend/internal/domain"
	"SnapLink-Backend/internal/repository"
	"context"
	"sort"
	"sync"
	"time"
)

// MemStorage потокобезопасная реализация Storage в памяти,
// используется в тестах и для локальной разработки без PostgreSQL
type MemStorage struct {
	mu           sync.RWMutex
	linksByCode  map[string]*domain.ShortLink
	clicks       []*domain.Click
	usersByEmail map[string]*domain.User
	linkCounter  int64
	clickCounter int64
	userCounter  int64
}

func New() *MemStorage {
	return &MemStorage{
		linksByCode:  make(map[string]*domain.ShortLink),
		usersByEmail: make(map[string]*domain.User),
	}
}

// --- Link Methods ---

func (s *MemStorage) SaveLink(_ context.Context, link *domain.ShortLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Код занят навсегда, в том числе неактивными ссылками
	if _, exists := s.linksByCode[link.Code]; exists {
		return repository.ErrCodeExists
	}

	s.linkCounter++
	link.ID = s.linkCounter
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}

	stored := *link
	s.linksByCode[link.Code] = &stored
	return nil
}

func (s *MemStorage) GetActiveLink(_ context.Context, code string) (*domain.ShortLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.linksByCode[code]
	if !ok || !link.IsActive {
		return nil, repository.ErrCodeNotFound
	}

	cp := *link
	return &cp, nil
}

func (s *MemStorage) GetLink(_ context.Context, code string) (*domain.ShortLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.linksByCode[code]
	if !ok {
		return nil, repository.ErrCodeNotFound
	}

	cp := *link
	return &cp, nil
}

func (s *MemStorage) DeactivateLink(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.linksByCode[code]
	if !ok {
		return repository.ErrCodeNotFound
	}
	link.IsActive = false
	return nil
}

func (s *MemStorage) ListUserLinks(_ context.Context, userID int64, limit, offset int) ([]*domain.ShortLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var links []*domain.ShortLink
	for _, link := range s.linksByCode {
		if link.IsActive && link.CreatedBy != nil && *link.CreatedBy == userID {
			cp := *link
			links = append(links, &cp)
		}
	}

	sort.Slice(links, func(i, j int) bool {
		return links[i].CreatedAt.After(links[j].CreatedAt)
	})

	if offset >= len(links) {
		return nil, nil
	}
	links = links[offset:]
	if limit > 0 && len(links) > limit {
		links = links[:limit]
	}
	return links, nil
}

func (s *MemStorage) RecordClick(_ context.Context, click *domain.Click) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var link *domain.ShortLink
	for _, l := range s.linksByCode {
		if l.ID == click.LinkID {
			link = l
			break
		}
	}
	if link == nil {
		return repository.ErrCodeNotFound
	}

	s.clickCounter++
	click.ID = s.clickCounter
	stored := *click
	s.clicks = append(s.clicks, &stored)

	// Обе записи под одной блокировкой: клик и счетчик согласованы
	link.ClickCount++
	clickedAt := click.ClickedAt
	link.LastClickedAt = &clickedAt
	return nil
}

// --- User Methods ---

func (s *MemStorage) CreateUser(_ context.Context, email, passwordHash string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByEmail[email]; exists {
		return nil, repository.ErrEmailExists
	}

	s.userCounter++
	user := &domain.User{
		ID:           s.userCounter,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
		IsActive:     true,
	}
	s.usersByEmail[email] = user

	cp := *user
	return &cp, nil
}

func (s *MemStorage) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByEmail[email]
	if !ok || !user.IsActive {
		return nil, repository.ErrUserNotFound
	}

	cp := *user
	return &cp, nil
}

func (s *MemStorage) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.usersByEmail {
		if user.ID == id && user.IsActive {
			cp := *user
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

// --- Aggregate Methods ---

func (s *MemStorage) CountActiveLinks(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, link := range s.linksByCode {
		if link.IsActive {
			count++
		}
	}
	return count, nil
}

func (s *MemStorage) CountClicks(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.clicks)), nil
}

func (s *MemStorage) CountClicksSince(_ context.Context, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, click := range s.clicks {
		if !click.ClickedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *MemStorage) DailyClicks(_ context.Context, linkID int64, days int) ([]repository.DailyCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	since := time.Now().AddDate(0, 0, -days)
	byDay := make(map[time.Time]int64)
	for _, click := range s.clicks {
		if click.LinkID != linkID || click.ClickedAt.Before(since) {
			continue
		}
		day := click.ClickedAt.Truncate(24 * time.Hour)
		byDay[day]++
	}

	results := make([]repository.DailyCount, 0, len(byDay))
	for day, count := range byDay {
		results = append(results, repository.DailyCount{Day: day, Count: count})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Day.Before(results[j].Day)
	})
	return results, nil
}

func (s *MemStorage) TopBrowsers(_ context.Context, linkID int64, limit int) ([]repository.FieldCount, error) {
	return s.topField(linkID, limit, func(c *domain.Click) *string { return c.Browser })
}

func (s *MemStorage) TopOS(_ context.Context, linkID int64, limit int) ([]repository.FieldCount, error) {
	return s.topField(linkID, limit, func(c *domain.Click) *string { return c.OS })
}

func (s *MemStorage) topField(linkID int64, limit int, field func(*domain.Click) *string) ([]repository.FieldCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byName := make(map[string]int64)
	for _, click := range s.clicks {
		if click.LinkID != linkID {
			continue
		}
		name := ""
		if v := field(click); v != nil {
			name = *v
		}
		byName[name]++
	}

	results := make([]repository.FieldCount, 0, len(byName))
	for name, count := range byName {
		results = append(results, repository.FieldCount{Name: name, Count: count})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Count != results[j].Count {
			return results[i].Count > results[j].Count
		}
		return results[i].Name < results[j].Name
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *MemStorage) RecentClicks(_ context.Context, linkID int64, limit int) ([]*domain.Click, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var clicks []*domain.Click
	for _, click := range s.clicks {
		if click.LinkID == linkID {
			cp := *click
			clicks = append(clicks, &cp)
		}
	}

	sort.Slice(clicks, func(i, j int) bool {
		return clicks[i].ClickedAt.After(clicks[j].ClickedAt)
	})
	if limit > 0 && len(clicks) > limit {
		clicks = clicks[:limit]
	}
	return clicks, nil
}

func (s *MemStorage) TopLinks(_ context.Context, limit int) ([]*domain.ShortLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var links []*domain.ShortLink
	for _, link := range s.linksByCode {
		if link.IsActive {
			cp := *link
			links = append(links, &cp)
		}
	}

	sort.Slice(links, func(i, j int) bool {
		return links[i].ClickCount > links[j].ClickCount
	})
	if limit > 0 && len(links) > limit {
		links = links[:limit]
	}
	return links, nil
}
