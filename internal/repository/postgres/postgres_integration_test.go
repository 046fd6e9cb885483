package postgres

import (
	"SnapLink-Backend/internal/database"
	"SnapLink-Backend/internal/domain"
	"SnapLink-Backend/internal/repository"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestStorage стартует PostgreSQL в контейнере и накатывает схему.
// Без Docker тест пропускается.
func setupTestStorage(t *testing.T) *PostgresStorage {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcpostgres.WithDatabase("snaplink_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("cannot start postgres container (is Docker running?): %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	log := zap.NewNop()
	require.NoError(t, database.AutoMigrate(db, log))

	return New(db, log)
}

func TestPostgresStorage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	storage := setupTestStorage(t)
	ctx := context.Background()

	t.Run("save_and_get_link", func(t *testing.T) {
		link := &domain.ShortLink{
			Code:        "itest1",
			OriginalURL: "https://example.com",
			IsActive:    true,
		}
		require.NoError(t, storage.SaveLink(ctx, link))
		assert.NotZero(t, link.ID)

		got, err := storage.GetActiveLink(ctx, "itest1")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", got.OriginalURL)
	})

	t.Run("duplicate_code", func(t *testing.T) {
		link := &domain.ShortLink{Code: "itest1", OriginalURL: "https://other.com", IsActive: true}
		err := storage.SaveLink(ctx, link)
		assert.ErrorIs(t, err, repository.ErrCodeExists)
	})

	t.Run("record_click_increments_counter", func(t *testing.T) {
		link := &domain.ShortLink{Code: "itest2", OriginalURL: "https://example.com", IsActive: true}
		require.NoError(t, storage.SaveLink(ctx, link))

		browser := "Chrome 120"
		click := &domain.Click{
			LinkID:    link.ID,
			ClickedAt: time.Now(),
			Browser:   &browser,
		}
		require.NoError(t, storage.RecordClick(ctx, click))

		got, err := storage.GetActiveLink(ctx, "itest2")
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.ClickCount)
		assert.NotNil(t, got.LastClickedAt)

		top, err := storage.TopBrowsers(ctx, link.ID, 5)
		require.NoError(t, err)
		require.NotEmpty(t, top)
		assert.Equal(t, "Chrome 120", top[0].Name)
	})

	t.Run("deactivate_link", func(t *testing.T) {
		link := &domain.ShortLink{Code: "itest3", OriginalURL: "https://example.com", IsActive: true}
		require.NoError(t, storage.SaveLink(ctx, link))

		require.NoError(t, storage.DeactivateLink(ctx, "itest3"))

		_, err := storage.GetActiveLink(ctx, "itest3")
		assert.ErrorIs(t, err, repository.ErrCodeNotFound)

		// GetLink видит неактивную ссылку
		got, err := storage.GetLink(ctx, "itest3")
		require.NoError(t, err)
		assert.False(t, got.IsActive)
	})

	t.Run("users", func(t *testing.T) {
		user, err := storage.CreateUser(ctx, "itest@example.com", "hash")
		require.NoError(t, err)
		assert.NotZero(t, user.ID)

		_, err = storage.CreateUser(ctx, "itest@example.com", "hash2")
		assert.ErrorIs(t, err, repository.ErrEmailExists)

		got, err := storage.GetUserByEmail(ctx, "itest@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("daily_clicks", func(t *testing.T) {
		link := &domain.ShortLink{Code: "itest4", OriginalURL: "https://example.com", IsActive: true}
		require.NoError(t, storage.SaveLink(ctx, link))

		for i := 0; i < 3; i++ {
			click := &domain.Click{LinkID: link.ID, ClickedAt: time.Now()}
			require.NoError(t, storage.RecordClick(ctx, click))
		}

		daily, err := storage.DailyClicks(ctx, link.ID, 30)
		require.NoError(t, err)
		require.Len(t, daily, 1)
		assert.Equal(t, int64(3), daily[0].Count)
	})
}
