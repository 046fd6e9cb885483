package service

import (
	"SnapLink-Backend/internal/config"
	"SnapLink-Backend/internal/repository"
	"SnapLink-Backend/internal/repository/memory"
	"SnapLink-Backend/pkg/geo"
	"SnapLink-Backend/pkg/random"
	"SnapLink-Backend/pkg/useragent"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubClassifier возвращает фиксированную классификацию
type stubClassifier struct {
	result useragent.Classification
}

func (s stubClassifier) Classify(_ string) useragent.Classification {
	return s.result
}

func newTestService(t *testing.T, storage repository.Storage) *ShortenerService {
	t.Helper()
	cfg := &config.Shortener{CodeLength: 6, MaxAttempts: 10, BaseURL: "http://localhost:8080"}
	classifier := stubClassifier{result: useragent.Classification{
		Browser: "Firefox 115",
		OS:      "Ubuntu",
		Device:  "Other",
	}}
	locator := geo.StaticResolver{Location: geo.Location{Country: "Germany", City: "Berlin"}}
	return NewShortener(storage, random.NewGenerator(42), classifier, locator, cfg, zap.NewNop())
}

func TestShorten(t *testing.T) {
	ctx := context.Background()

	t.Run("generated_code_has_configured_length", func(t *testing.T) {
		svc := newTestService(t, memory.New())

		link, err := svc.Shorten(ctx, CreateLink{OriginalURL: "https://example.com"})

		require.NoError(t, err)
		assert.Len(t, link.Code, 6)
		for _, r := range link.Code {
			assert.Contains(t, random.Alphabet, string(r))
		}
	})

	t.Run("empty_url", func(t *testing.T) {
		svc := newTestService(t, memory.New())

		_, err := svc.Shorten(ctx, CreateLink{OriginalURL: "   "})

		assert.ErrorIs(t, err, ErrEmptyURL)
	})

	t.Run("url_without_scheme_gets_https", func(t *testing.T) {
		svc := newTestService(t, memory.New())

		link, err := svc.Shorten(ctx, CreateLink{OriginalURL: "example.com/page"})

		require.NoError(t, err)
		assert.Equal(t, "https://example.com/page", link.OriginalURL)
	})

	t.Run("url_with_scheme_unchanged", func(t *testing.T) {
		svc := newTestService(t, memory.New())

		link, err := svc.Shorten(ctx, CreateLink{OriginalURL: "http://example.com"})

		require.NoError(t, err)
		assert.Equal(t, "http://example.com", link.OriginalURL)
	})

	t.Run("custom_code", func(t *testing.T) {
		svc := newTestService(t, memory.New())

		link, err := svc.Shorten(ctx, CreateLink{
			OriginalURL: "https://example.com",
			CustomCode:  "my-code",
		})

		require.NoError(t, err)
		assert.Equal(t, "my-code", link.Code)
	})

	t.Run("custom_code_taken", func(t *testing.T) {
		svc := newTestService(t, memory.New())

		_, err := svc.Shorten(ctx, CreateLink{OriginalURL: "https://one.com", CustomCode: "taken"})
		require.NoError(t, err)

		_, err = svc.Shorten(ctx, CreateLink{OriginalURL: "https://two.com", CustomCode: "taken"})
		assert.ErrorIs(t, err, ErrCodeTaken)
	})

	t.Run("custom_code_taken_by_inactive_link", func(t *testing.T) {
		storage := memory.New()
		svc := newTestService(t, storage)

		_, err := svc.Shorten(ctx, CreateLink{OriginalURL: "https://one.com", CustomCode: "gone"})
		require.NoError(t, err)
		require.NoError(t, storage.DeactivateLink(ctx, "gone"))

		// Деактивированный код не освобождается
		_, err = svc.Shorten(ctx, CreateLink{OriginalURL: "https://two.com", CustomCode: "gone"})
		assert.ErrorIs(t, err, ErrCodeTaken)
	})

	t.Run("expires_in_days", func(t *testing.T) {
		svc := newTestService(t, memory.New())

		link, err := svc.Shorten(ctx, CreateLink{
			OriginalURL:   "https://example.com",
			ExpiresInDays: "7",
		})

		require.NoError(t, err)
		require.NotNil(t, link.ExpiresAt)
		expected := time.Now().AddDate(0, 0, 7)
		assert.WithinDuration(t, expected, *link.ExpiresAt, time.Minute)
	})

	t.Run("invalid_expires_in_days_ignored", func(t *testing.T) {
		svc := newTestService(t, memory.New())

		link, err := svc.Shorten(ctx, CreateLink{
			OriginalURL:   "https://example.com",
			ExpiresInDays: "soon",
		})

		require.NoError(t, err)
		assert.Nil(t, link.ExpiresAt)
	})

	t.Run("empty_expires_in_days_ignored", func(t *testing.T) {
		svc := newTestService(t, memory.New())

		link, err := svc.Shorten(ctx, CreateLink{OriginalURL: "https://example.com"})

		require.NoError(t, err)
		assert.Nil(t, link.ExpiresAt)
	})

	t.Run("title_and_description_trimmed", func(t *testing.T) {
		svc := newTestService(t, memory.New())

		link, err := svc.Shorten(ctx, CreateLink{
			OriginalURL: "https://example.com",
			Title:       "  My link  ",
			Description: "",
		})

		require.NoError(t, err)
		require.NotNil(t, link.Title)
		assert.Equal(t, "My link", *link.Title)
		assert.Nil(t, link.Description)
	})

	t.Run("collision_retries_until_free_code", func(t *testing.T) {
		storage := memory.New()

		// Два генератора с одинаковым сидом выдают одинаковые коды:
		// первый сервис занимает код, второй вынужден ретраить
		first := newTestService(t, storage)
		link1, err := first.Shorten(ctx, CreateLink{OriginalURL: "https://one.com"})
		require.NoError(t, err)

		second := newTestService(t, storage)
		link2, err := second.Shorten(ctx, CreateLink{OriginalURL: "https://two.com"})
		require.NoError(t, err)

		assert.NotEqual(t, link1.Code, link2.Code)
	})
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	meta := RequestMeta{
		IPAddress: "203.0.113.10",
		UserAgent: "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:115.0) Gecko/20100101 Firefox/115.0",
		Referer:   "https://news.example.org",
	}

	t.Run("unknown_code", func(t *testing.T) {
		svc := newTestService(t, memory.New())

		link, err := svc.Resolve(ctx, "nope", meta)

		assert.Nil(t, link)
		assert.ErrorIs(t, err, ErrLinkNotFound)
	})

	t.Run("inactive_link_not_found_and_no_click", func(t *testing.T) {
		storage := memory.New()
		svc := newTestService(t, storage)

		created, err := svc.Shorten(ctx, CreateLink{OriginalURL: "https://example.com"})
		require.NoError(t, err)
		require.NoError(t, storage.DeactivateLink(ctx, created.Code))

		link, err := svc.Resolve(ctx, created.Code, meta)

		assert.Nil(t, link)
		assert.ErrorIs(t, err, ErrLinkNotFound)

		count, err := storage.CountClicks(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("expired_link_returned_without_click", func(t *testing.T) {
		storage := memory.New()
		svc := newTestService(t, storage)

		created, err := svc.Shorten(ctx, CreateLink{
			OriginalURL:   "https://example.com",
			ExpiresInDays: "-1",
		})
		require.NoError(t, err)

		link, err := svc.Resolve(ctx, created.Code, meta)

		assert.ErrorIs(t, err, ErrLinkExpired)
		// Истекшая ссылка возвращается для страницы истечения
		require.NotNil(t, link)
		assert.Equal(t, "https://example.com", link.OriginalURL)

		count, err := storage.CountClicks(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("successful_resolve_records_click", func(t *testing.T) {
		storage := memory.New()
		svc := newTestService(t, storage)

		created, err := svc.Shorten(ctx, CreateLink{OriginalURL: "https://example.com"})
		require.NoError(t, err)

		link, err := svc.Resolve(ctx, created.Code, meta)

		require.NoError(t, err)
		assert.Equal(t, int64(1), link.ClickCount)
		assert.NotNil(t, link.LastClickedAt)

		clicks, err := storage.RecentClicks(ctx, created.ID, 10)
		require.NoError(t, err)
		require.Len(t, clicks, 1)

		click := clicks[0]
		require.NotNil(t, click.IPAddress)
		assert.Equal(t, "203.0.113.10", click.IPAddress.String())
		require.NotNil(t, click.UserAgent)
		assert.Equal(t, meta.UserAgent, *click.UserAgent)
		require.NotNil(t, click.Referer)
		assert.Equal(t, meta.Referer, *click.Referer)
		require.NotNil(t, click.Browser)
		assert.Equal(t, "Firefox 115", *click.Browser)
		require.NotNil(t, click.OS)
		assert.Equal(t, "Ubuntu", *click.OS)
		require.NotNil(t, click.Country)
		assert.Equal(t, "Germany", *click.Country)
	})

	t.Run("empty_meta_fields_stored_as_null", func(t *testing.T) {
		storage := memory.New()
		cfg := &config.Shortener{CodeLength: 6, MaxAttempts: 10}
		svc := NewShortener(storage, random.NewGenerator(7), stubClassifier{}, geo.NoopResolver{}, cfg, zap.NewNop())

		created, err := svc.Shorten(ctx, CreateLink{OriginalURL: "https://example.com"})
		require.NoError(t, err)

		_, err = svc.Resolve(ctx, created.Code, RequestMeta{})
		require.NoError(t, err)

		clicks, err := storage.RecentClicks(ctx, created.ID, 1)
		require.NoError(t, err)
		require.Len(t, clicks, 1)
		assert.Nil(t, clicks[0].IPAddress)
		assert.Nil(t, clicks[0].UserAgent)
		assert.Nil(t, clicks[0].Referer)
		assert.Nil(t, clicks[0].Browser)
		assert.Nil(t, clicks[0].Country)
	})

	t.Run("concurrent_resolves_count_every_click", func(t *testing.T) {
		storage := memory.New()
		svc := newTestService(t, storage)

		created, err := svc.Shorten(ctx, CreateLink{OriginalURL: "https://example.com"})
		require.NoError(t, err)

		const n = 50
		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func() {
				defer wg.Done()
				_, err := svc.Resolve(ctx, created.Code, meta)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		stored, err := storage.GetLink(ctx, created.Code)
		require.NoError(t, err)
		assert.Equal(t, int64(n), stored.ClickCount)

		count, err := storage.CountClicks(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(n), count)
	})
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"example.com", "https://example.com"},
		{"http://example.com", "http://example.com"},
		{"https://example.com", "https://example.com"},
		{"sub.example.com/a/b?q=1", "https://sub.example.com/a/b?q=1"},
	}

	for _, tt := range tests {
		t.Run(strings.ReplaceAll(tt.in, "/", "_"), func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeURL(tt.in))
		})
	}
}
