package http

import (
	"SnapLink-Backend/internal/auth"
	"SnapLink-Backend/internal/middleware"
	"SnapLink-Backend/internal/repository"
	"SnapLink-Backend/internal/service"
	"net/http"

	"go.uber.org/zap"
)

// Server HTTP сервер с обработчиками
type Server struct {
	authHandlers    *auth.AuthHandlers
	linksHandler    *LinksHandler
	redirectHandler *RedirectHandler
	pagesHandler    *PagesHandler
	healthHandler   *HealthHandler
	authMiddleware  *auth.Middleware
	createLimiter   *middleware.RateLimiter
	apiLimiter      *middleware.RateLimiter
	log             *zap.Logger
}

// NewServer создает новый HTTP сервер
func NewServer(
	storage repository.Storage,
	shortener *service.ShortenerService,
	jwtService *auth.JWTService,
	passwordService *auth.PasswordService,
	createLimiter *middleware.RateLimiter,
	apiLimiter *middleware.RateLimiter,
	log *zap.Logger,
	baseURL string,
) *Server {
	linksHandler := NewLinksHandler(storage, shortener, log, baseURL)
	pagesHandler := NewPagesHandler(storage, shortener, log, baseURL)

	return &Server{
		authHandlers:    auth.NewAuthHandlers(storage, jwtService, passwordService, log),
		linksHandler:    linksHandler,
		redirectHandler: NewRedirectHandler(shortener, pagesHandler, log),
		pagesHandler:    pagesHandler,
		healthHandler:   NewHealthHandler(storage, log),
		authMiddleware:  auth.NewMiddleware(jwtService, log),
		createLimiter:   createLimiter,
		apiLimiter:      apiLimiter,
		log:             log,
	}
}

// SetupRoutes настраивает маршруты
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Health checks (без аутентификации)
	mux.HandleFunc("/health", s.healthHandler.Health)
	mux.HandleFunc("/ready", s.healthHandler.Ready)

	// Auth endpoints
	mux.HandleFunc("/api/auth/register", s.withCORS(s.authHandlers.Register))
	mux.HandleFunc("/api/auth/login", s.withCORS(s.authHandlers.Login))

	// Программное создание ссылок: JSON, лимит 20/мин на IP,
	// аутентификация опциональна (анонимные ссылки разрешены)
	mux.HandleFunc("/api/create",
		s.withCORS(s.apiLimiter.Limit(s.authMiddleware.OptionalAuth(s.linksHandler.CreateAPI))))

	// Ссылки пользователя (с аутентификацией)
	mux.HandleFunc("/api/links",
		s.withCORS(s.authMiddleware.RequireAuth(s.linksHandler.ListLinks)))
	mux.HandleFunc("/api/links/",
		s.withCORS(s.authMiddleware.RequireAuth(s.handleLinksAPI)))

	// Статистика и дашборд публичны, как в исходном приложении
	mux.HandleFunc("/api/stats/", s.withCORS(s.linksHandler.GetStats))
	mux.HandleFunc("/api/dashboard", s.withCORS(s.linksHandler.Dashboard))

	// Интерактивное создание: форма, лимит 10/мин на IP
	mux.HandleFunc("/create",
		s.createLimiter.Limit(s.authMiddleware.OptionalAuth(s.pagesHandler.CreateForm)))

	// Главная страница и редиректы — должны быть последними
	mux.HandleFunc("/", s.handleRoot)

	return mux
}

// handleRoot разводит главную страницу и редиректы по коротким кодам
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		s.pagesHandler.Home(w, r)
		return
	}
	s.redirectHandler.HandleRedirect(w, r)
}

// handleLinksAPI обрабатывает /api/links/* endpoints с разными HTTP методами
func (s *Server) handleLinksAPI(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodDelete:
		s.linksHandler.DeleteLink(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// withCORS добавляет CORS headers к обработчику
func (s *Server) withCORS(handler http.HandlerFunc) http.HandlerFunc {
	return s.authMiddleware.CORS(handler)
}
