package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFormBody(encoded string) *strings.Reader {
	return strings.NewReader(encoded)
}

func TestRedirect(t *testing.T) {
	env := newTestEnv(t)

	createRec := env.do(http.MethodPost, "/api/create", "", map[string]string{"url": "https://example.com/target"})
	require.Equal(t, http.StatusOK, createRec.Code)
	var created CreateAPIResponse
	require.NoError(t, json.NewDecoder(createRec.Body).Decode(&created))

	t.Run("redirects_to_original", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/"+created.ShortCode, nil)
		req.Header.Set("User-Agent", "Mozilla/5.0 test")
		req.Header.Set("Referer", "https://news.example.org")
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "https://example.com/target", rec.Header().Get("Location"))
	})

	t.Run("redirect_records_click", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/stats/"+created.ShortCode, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var stats LinkStats
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
		assert.Equal(t, int64(1), stats.ClickCount)
		require.Len(t, stats.RecentClicks, 1)
		assert.Equal(t, "https://news.example.org", stats.RecentClicks[0].Referer)
	})

	t.Run("unknown_code_renders_not_found_page", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/nosuchcode", "", nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, rec.Body.String(), "does not exist")
	})

	t.Run("stats_page", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/"+created.ShortCode+"/stats", "", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, rec.Body.String(), "https://example.com/target")
	})
}

func TestRedirectExpired(t *testing.T) {
	env := newTestEnv(t)

	// Ссылка с истекшим сроком создается через форму: API не принимает TTL
	form := "original_url=https://example.com/old&expires_in_days=-1"
	req := httptest.NewRequest(http.MethodPost, "/create", newFormBody(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	location := rec.Header().Get("Location") // /{code}/stats
	code := location[1 : len(location)-len("/stats")]

	t.Run("expired_page_shows_original_url", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/"+code, "", nil)

		assert.Equal(t, http.StatusGone, rec.Code)
		assert.Contains(t, rec.Body.String(), "https://example.com/old")
	})

	t.Run("expired_link_records_no_clicks", func(t *testing.T) {
		statsRec := env.do(http.MethodGet, "/api/stats/"+code, "", nil)
		require.Equal(t, http.StatusOK, statsRec.Code)

		var stats LinkStats
		require.NoError(t, json.NewDecoder(statsRec.Body).Decode(&stats))
		assert.Zero(t, stats.ClickCount)
		assert.Empty(t, stats.RecentClicks)
	})
}

func TestHomePage(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "original_url")
}

func TestCreateForm(t *testing.T) {
	env := newTestEnv(t)

	t.Run("success_redirects_to_stats", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/create", newFormBody("original_url=example.com"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Contains(t, rec.Header().Get("Location"), "/stats")
	})

	t.Run("empty_url_rerenders_form", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/create", newFormBody("original_url="))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Please enter a URL")
	})

	t.Run("taken_custom_code", func(t *testing.T) {
		first := httptest.NewRequest(http.MethodPost, "/create", newFormBody("original_url=one.com&custom_code=mine"))
		first.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		firstRec := httptest.NewRecorder()
		env.server.ServeHTTP(firstRec, first)
		require.Equal(t, http.StatusSeeOther, firstRec.Code)

		second := httptest.NewRequest(http.MethodPost, "/create", newFormBody("original_url=two.com&custom_code=mine"))
		second.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		secondRec := httptest.NewRecorder()
		env.server.ServeHTTP(secondRec, second)

		assert.Equal(t, http.StatusConflict, secondRec.Code)
		assert.Contains(t, secondRec.Body.String(), "already taken")
	})

	t.Run("get_redirects_home", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/create", "", nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
	})
}
