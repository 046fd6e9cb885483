package http

import (
	"SnapLink-Backend/internal/auth"
	"SnapLink-Backend/internal/domain"
	"SnapLink-Backend/internal/repository"
	"SnapLink-Backend/internal/service"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultPageSize   = 10
	maxPageSize       = 100
	statsWindowDays   = 30
	statsTopBreakdown = 5
	statsRecentClicks = 10
)

// LinksHandler обработчик для работы со ссылками
type LinksHandler struct {
	storage   repository.Storage
	shortener *service.ShortenerService
	log       *zap.Logger
	baseURL   string
}

// NewLinksHandler создает новый обработчик ссылок
func NewLinksHandler(storage repository.Storage, shortener *service.ShortenerService, log *zap.Logger, baseURL string) *LinksHandler {
	return &LinksHandler{
		storage:   storage,
		shortener: shortener,
		log:       log,
		baseURL:   baseURL,
	}
}

// CreateAPIRequest структура запроса программного создания ссылки
type CreateAPIRequest struct {
	URL string `json:"url"`
}

// CreateAPIResponse структура ответа программного создания ссылки
type CreateAPIResponse struct {
	ShortURL    string `json:"short_url"`
	ShortCode   string `json:"short_code"`
	OriginalURL string `json:"original_url"`
}

// LinkInfo информация о ссылке
type LinkInfo struct {
	Code          string `json:"code"`
	ShortURL      string `json:"short_url"`
	OriginalURL   string `json:"original_url"`
	Title         string `json:"title,omitempty"`
	ClickCount    int64  `json:"click_count"`
	CreatedAt     string `json:"created_at"`
	ExpiresAt     string `json:"expires_at,omitempty"`
	LastClickedAt string `json:"last_clicked_at,omitempty"`
}

// ClickInfo информация об одном клике
type ClickInfo struct {
	ClickedAt string `json:"clicked_at"`
	IPAddress string `json:"ip_address,omitempty"`
	Browser   string `json:"browser,omitempty"`
	OS        string `json:"os,omitempty"`
	Device    string `json:"device,omitempty"`
	Country   string `json:"country,omitempty"`
	Referer   string `json:"referer,omitempty"`
}

// LinkStats полная статистика ссылки
type LinkStats struct {
	LinkInfo
	IsActive     bool                    `json:"is_active"`
	Description  string                  `json:"description,omitempty"`
	DailyClicks  []repository.DailyCount `json:"daily_clicks"`
	TopBrowsers  []repository.FieldCount `json:"top_browsers"`
	TopOS        []repository.FieldCount `json:"top_os"`
	RecentClicks []ClickInfo             `json:"recent_clicks"`
}

// ListLinksResponse структура ответа списка ссылок
type ListLinksResponse struct {
	Links []LinkInfo `json:"links"`
}

// DashboardResponse сводная статистика сервиса
type DashboardResponse struct {
	TotalLinks  int64      `json:"total_links"`
	TotalClicks int64      `json:"total_clicks"`
	ClicksToday int64      `json:"clicks_today"`
	TopLinks    []LinkInfo `json:"top_links"`
}

// CreateAPI создает короткую ссылку из JSON-запроса.
// Аутентификация опциональна: токен привязывает ссылку к владельцу.
func (h *LinksHandler) CreateAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateAPIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid api create request", zap.Error(err))
		h.writeError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	in := service.CreateLink{OriginalURL: req.URL}
	if userID, ok := auth.GetUserIDFromContext(r.Context()); ok {
		in.CreatedBy = &userID
	}

	link, err := h.shortener.Shorten(r.Context(), in)
	if err != nil {
		if errors.Is(err, service.ErrEmptyURL) {
			h.writeError(w, "URL is required", http.StatusBadRequest)
			return
		}
		if errors.Is(err, service.ErrCodeTaken) {
			h.writeError(w, "Short code already exists", http.StatusConflict)
			return
		}
		h.log.Error("failed to create link via api", zap.Error(err))
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, CreateAPIResponse{
		ShortURL:    link.ShortURL(h.baseURL),
		ShortCode:   link.Code,
		OriginalURL: link.OriginalURL,
	}, http.StatusOK)
}

// ListLinks возвращает активные ссылки аутентифицированного пользователя
func (h *LinksHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, "User ID not found in context", http.StatusUnauthorized)
		return
	}

	limit := queryInt(r, "limit", defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := queryInt(r, "offset", 0)

	links, err := h.storage.ListUserLinks(r.Context(), userID, limit, offset)
	if err != nil {
		h.log.Error("failed to list user links", zap.Int64("user_id", userID), zap.Error(err))
		h.writeError(w, "Failed to retrieve links", http.StatusInternalServerError)
		return
	}

	infos := make([]LinkInfo, len(links))
	for i, link := range links {
		infos[i] = h.linkInfo(link)
	}

	h.writeJSON(w, ListLinksResponse{Links: infos}, http.StatusOK)
}

// GetStats возвращает статистику по ссылке: /api/stats/{code}
func (h *LinksHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	code := strings.TrimPrefix(r.URL.Path, "/api/stats/")
	if code == "" || strings.Contains(code, "/") {
		h.writeError(w, "Code is required", http.StatusBadRequest)
		return
	}

	stats, err := collectLinkStats(r.Context(), h.storage, h.baseURL, code)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			h.writeError(w, "Link not found", http.StatusNotFound)
			return
		}
		h.log.Error("failed to collect link stats", zap.String("code", code), zap.Error(err))
		h.writeError(w, "Failed to retrieve stats", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, stats, http.StatusOK)
}

// DeleteLink деактивирует ссылку владельца: DELETE /api/links/{code}.
// Код остается занятым и не выдается повторно.
func (h *LinksHandler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimPrefix(r.URL.Path, "/api/links/")
	if code == "" || strings.Contains(code, "/") {
		h.writeError(w, "Code is required", http.StatusBadRequest)
		return
	}

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, "User ID not found in context", http.StatusUnauthorized)
		return
	}

	link, err := h.storage.GetLink(r.Context(), code)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			h.writeError(w, "Link not found", http.StatusNotFound)
			return
		}
		h.log.Error("failed to get link for deletion", zap.String("code", code), zap.Error(err))
		h.writeError(w, "Failed to retrieve link", http.StatusInternalServerError)
		return
	}

	if link.CreatedBy == nil || *link.CreatedBy != userID {
		h.writeError(w, "Access denied", http.StatusForbidden)
		return
	}

	if err := h.storage.DeactivateLink(r.Context(), code); err != nil {
		h.log.Error("failed to deactivate link", zap.String("code", code), zap.Error(err))
		h.writeError(w, "Failed to delete link", http.StatusInternalServerError)
		return
	}

	h.log.Info("deactivated link", zap.String("code", code), zap.Int64("user_id", userID))
	w.WriteHeader(http.StatusNoContent)
}

// Dashboard возвращает сводную статистику сервиса
func (h *LinksHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	totalLinks, err := h.storage.CountActiveLinks(ctx)
	if err != nil {
		h.dashboardError(w, err)
		return
	}
	totalClicks, err := h.storage.CountClicks(ctx)
	if err != nil {
		h.dashboardError(w, err)
		return
	}

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	clicksToday, err := h.storage.CountClicksSince(ctx, midnight)
	if err != nil {
		h.dashboardError(w, err)
		return
	}

	topLinks, err := h.storage.TopLinks(ctx, defaultPageSize)
	if err != nil {
		h.dashboardError(w, err)
		return
	}

	infos := make([]LinkInfo, len(topLinks))
	for i, link := range topLinks {
		infos[i] = h.linkInfo(link)
	}

	h.writeJSON(w, DashboardResponse{
		TotalLinks:  totalLinks,
		TotalClicks: totalClicks,
		ClicksToday: clicksToday,
		TopLinks:    infos,
	}, http.StatusOK)
}

// collectLinkStats собирает статистику ссылки для JSON и HTML представлений
func collectLinkStats(ctx context.Context, storage repository.Storage, baseURL, code string) (*LinkStats, error) {
	link, err := storage.GetLink(ctx, code)
	if err != nil {
		return nil, err
	}

	daily, err := storage.DailyClicks(ctx, link.ID, statsWindowDays)
	if err != nil {
		return nil, err
	}
	browsers, err := storage.TopBrowsers(ctx, link.ID, statsTopBreakdown)
	if err != nil {
		return nil, err
	}
	oses, err := storage.TopOS(ctx, link.ID, statsTopBreakdown)
	if err != nil {
		return nil, err
	}
	recent, err := storage.RecentClicks(ctx, link.ID, statsRecentClicks)
	if err != nil {
		return nil, err
	}

	stats := &LinkStats{
		LinkInfo:     linkInfoFor(link, baseURL),
		IsActive:     link.IsActive,
		DailyClicks:  daily,
		TopBrowsers:  browsers,
		TopOS:        oses,
		RecentClicks: make([]ClickInfo, len(recent)),
	}
	if link.Description != nil {
		stats.Description = *link.Description
	}
	for i, click := range recent {
		stats.RecentClicks[i] = clickInfo(click)
	}

	return stats, nil
}

// Helper methods

func (h *LinksHandler) linkInfo(link *domain.ShortLink) LinkInfo {
	return linkInfoFor(link, h.baseURL)
}

func linkInfoFor(link *domain.ShortLink, baseURL string) LinkInfo {
	info := LinkInfo{
		Code:        link.Code,
		ShortURL:    link.ShortURL(baseURL),
		OriginalURL: link.OriginalURL,
		ClickCount:  link.ClickCount,
		CreatedAt:   link.CreatedAt.Format(time.RFC3339),
	}
	if link.Title != nil {
		info.Title = *link.Title
	}
	if link.ExpiresAt != nil {
		info.ExpiresAt = link.ExpiresAt.Format(time.RFC3339)
	}
	if link.LastClickedAt != nil {
		info.LastClickedAt = link.LastClickedAt.Format(time.RFC3339)
	}
	return info
}

func clickInfo(click *domain.Click) ClickInfo {
	info := ClickInfo{
		ClickedAt: click.ClickedAt.Format(time.RFC3339),
	}
	if click.IPAddress != nil {
		info.IPAddress = click.IPAddress.String()
	}
	if click.Browser != nil {
		info.Browser = *click.Browser
	}
	if click.OS != nil {
		info.OS = *click.OS
	}
	if click.Device != nil {
		info.Device = *click.Device
	}
	if click.Country != nil {
		info.Country = *click.Country
	}
	if click.Referer != nil {
		info.Referer = *click.Referer
	}
	return info
}

func (h *LinksHandler) dashboardError(w http.ResponseWriter, err error) {
	h.log.Error("failed to build dashboard", zap.Error(err))
	h.writeError(w, "Failed to build dashboard", http.StatusInternalServerError)
}

func (h *LinksHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error("failed to encode response", zap.Error(err))
	}
}

func (h *LinksHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
