package http

import (
	"SnapLink-Backend/internal/service"
	"errors"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// RedirectHandler обработчик редиректов по коротким кодам
type RedirectHandler struct {
	shortener *service.ShortenerService
	pages     *PagesHandler
	log       *zap.Logger
}

// NewRedirectHandler создает новый обработчик редиректов
func NewRedirectHandler(shortener *service.ShortenerService, pages *PagesHandler, log *zap.Logger) *RedirectHandler {
	return &RedirectHandler{
		shortener: shortener,
		pages:     pages,
		log:       log,
	}
}

// HandleRedirect обрабатывает /{code} и /{code}/stats
func (h *RedirectHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	// Системные пути сюда не попадают: они зарегистрированы раньше
	switch {
	case len(parts) == 1 && parts[0] != "":
		h.redirect(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "stats":
		h.pages.Detail(w, r, parts[0])
	default:
		h.pages.NotFound(w, r)
	}
}

// redirect регистрирует клик и выполняет редирект
func (h *RedirectHandler) redirect(w http.ResponseWriter, r *http.Request, code string) {
	meta := service.RequestMeta{
		IPAddress: extractIPAddress(r),
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
	}

	link, err := h.shortener.Resolve(r.Context(), code, meta)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLinkNotFound):
			h.log.Debug("code not found", zap.String("code", code))
			h.pages.NotFound(w, r)
		case errors.Is(err, service.ErrLinkExpired):
			h.log.Debug("link expired", zap.String("code", code))
			h.pages.Expired(w, r, link)
		default:
			h.log.Error("failed to process redirect", zap.String("code", code), zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.log.Info("successful redirect",
		zap.String("code", code),
		zap.String("original_url", link.OriginalURL),
		zap.String("ip", meta.IPAddress))

	http.Redirect(w, r, link.OriginalURL, http.StatusFound)
}

// extractIPAddress извлекает IP адрес из запроса с учетом прокси
func extractIPAddress(r *http.Request) string {
	// Проверяем заголовки прокси в порядке приоритета
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// X-Forwarded-For может содержать список IP через запятую
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}

	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}

	// Fallback к RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
