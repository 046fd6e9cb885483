package http

import (
	"SnapLink-Backend/internal/auth"
	"SnapLink-Backend/internal/domain"
	"SnapLink-Backend/internal/repository"
	"SnapLink-Backend/internal/service"
	"errors"
	"html/template"
	"net/http"

	"go.uber.org/zap"
)

// PagesHandler отдает HTML-страницы сервиса
type PagesHandler struct {
	storage   repository.Storage
	shortener *service.ShortenerService
	log       *zap.Logger
	baseURL   string
}

// NewPagesHandler создает новый обработчик страниц
func NewPagesHandler(storage repository.Storage, shortener *service.ShortenerService, log *zap.Logger, baseURL string) *PagesHandler {
	return &PagesHandler{
		storage:   storage,
		shortener: shortener,
		log:       log,
		baseURL:   baseURL,
	}
}

var pageLayout = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} — SnapLink</title>
<style>
body{font-family:system-ui,sans-serif;max-width:720px;margin:2rem auto;padding:0 1rem;color:#222}
h1{font-size:1.5rem}
form label{display:block;margin:.75rem 0 .25rem;font-weight:600}
input[type=text],input[type=url],input[type=number]{width:100%;padding:.5rem;border:1px solid #ccc;border-radius:4px}
button{margin-top:1rem;padding:.5rem 1.5rem;border:0;border-radius:4px;background:#2563eb;color:#fff;cursor:pointer}
.error{color:#b91c1c;margin:.5rem 0}
.muted{color:#666}
table{border-collapse:collapse;width:100%;margin:1rem 0}
th,td{text-align:left;padding:.4rem .6rem;border-bottom:1px solid #eee}
.stat{display:inline-block;margin-right:2rem}
.stat b{display:block;font-size:1.4rem}
</style>
</head>
<body>
<h1>{{.Title}}</h1>
`

var homeTmpl = template.Must(template.New("home").Parse(pageLayout + `
<p class="muted"><span class="stat"><b>{{.TotalLinks}}</b> active links</span>
<span class="stat"><b>{{.TotalClicks}}</b> total clicks</span></p>
<form method="post" action="/create">
<label for="original_url">Long URL</label>
<input type="text" id="original_url" name="original_url" placeholder="https://example.com/very/long/path" required>
<label for="title">Title (optional)</label>
<input type="text" id="title" name="title">
<label for="description">Description (optional)</label>
<input type="text" id="description" name="description">
<label for="custom_code">Custom code (optional)</label>
<input type="text" id="custom_code" name="custom_code" maxlength="10">
<label for="expires_in_days">Expires in days (optional)</label>
<input type="number" id="expires_in_days" name="expires_in_days" min="1">
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<button type="submit">Shorten</button>
</form>
</body>
</html>`))

var detailTmpl = template.Must(template.New("detail").Parse(pageLayout + `
<p><a href="/{{.Stats.Code}}">{{.Stats.ShortURL}}</a> &rarr; {{.Stats.OriginalURL}}</p>
{{if .Stats.Description}}<p class="muted">{{.Stats.Description}}</p>{{end}}
<p class="muted"><span class="stat"><b>{{.Stats.ClickCount}}</b> clicks</span>
{{if not .Stats.IsActive}}<span class="stat error"><b>inactive</b></span>{{end}}
{{if .Stats.ExpiresAt}}<span class="stat">expires {{.Stats.ExpiresAt}}</span>{{end}}</p>
{{if .Stats.DailyClicks}}
<h2>Last 30 days</h2>
<table><tr><th>Day</th><th>Clicks</th></tr>
{{range .Stats.DailyClicks}}<tr><td>{{.Day.Format "2006-01-02"}}</td><td>{{.Count}}</td></tr>{{end}}
</table>
{{end}}
{{if .Stats.TopBrowsers}}
<h2>Browsers</h2>
<table><tr><th>Browser</th><th>Clicks</th></tr>
{{range .Stats.TopBrowsers}}<tr><td>{{if .Name}}{{.Name}}{{else}}Unknown{{end}}</td><td>{{.Count}}</td></tr>{{end}}
</table>
{{end}}
{{if .Stats.TopOS}}
<h2>Operating systems</h2>
<table><tr><th>OS</th><th>Clicks</th></tr>
{{range .Stats.TopOS}}<tr><td>{{if .Name}}{{.Name}}{{else}}Unknown{{end}}</td><td>{{.Count}}</td></tr>{{end}}
</table>
{{end}}
{{if .Stats.RecentClicks}}
<h2>Recent clicks</h2>
<table><tr><th>Time</th><th>Browser</th><th>OS</th><th>Country</th></tr>
{{range .Stats.RecentClicks}}<tr><td>{{.ClickedAt}}</td><td>{{.Browser}}</td><td>{{.OS}}</td><td>{{.Country}}</td></tr>{{end}}
</table>
{{end}}
<p><a href="/">&larr; Home</a></p>
</body>
</html>`))

var expiredTmpl = template.Must(template.New("expired").Parse(pageLayout + `
<p>This short link has expired and no longer redirects.</p>
<p>The original destination was: <code>{{.OriginalURL}}</code></p>
<p><a href="/">&larr; Create a new link</a></p>
</body>
</html>`))

var notFoundTmpl = template.Must(template.New("notfound").Parse(pageLayout + `
<p>The short link you requested does not exist or has been removed.</p>
<p><a href="/">&larr; Home</a></p>
</body>
</html>`))

// Home отдает главную страницу с формой создания ссылки
func (h *PagesHandler) Home(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.renderHome(w, r, "", http.StatusOK)
}

// CreateForm обрабатывает отправку формы создания ссылки.
// При успехе перенаправляет на страницу статистики новой ссылки.
func (h *PagesHandler) CreateForm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.renderHome(w, r, "Invalid form submission", http.StatusBadRequest)
		return
	}

	in := service.CreateLink{
		OriginalURL:   r.PostFormValue("original_url"),
		Title:         r.PostFormValue("title"),
		Description:   r.PostFormValue("description"),
		CustomCode:    r.PostFormValue("custom_code"),
		ExpiresInDays: r.PostFormValue("expires_in_days"),
	}
	if userID, ok := auth.GetUserIDFromContext(r.Context()); ok {
		in.CreatedBy = &userID
	}

	link, err := h.shortener.Shorten(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyURL):
			h.renderHome(w, r, "Please enter a URL to shorten", http.StatusBadRequest)
		case errors.Is(err, service.ErrCodeTaken):
			h.renderHome(w, r, "That custom code is already taken", http.StatusConflict)
		default:
			h.log.Error("failed to create link via form", zap.Error(err))
			h.renderHome(w, r, "Something went wrong, please try again", http.StatusInternalServerError)
		}
		return
	}

	http.Redirect(w, r, "/"+link.Code+"/stats", http.StatusSeeOther)
}

// Detail отдает HTML-страницу статистики ссылки
func (h *PagesHandler) Detail(w http.ResponseWriter, r *http.Request, code string) {
	stats, err := collectLinkStats(r.Context(), h.storage, h.baseURL, code)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			h.NotFound(w, r)
			return
		}
		h.log.Error("failed to collect stats for page", zap.String("code", code), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.render(w, detailTmpl, http.StatusOK, map[string]interface{}{
		"Title": "Link statistics",
		"Stats": stats,
	})
}

// Expired отдает страницу истекшей ссылки с исходным адресом
func (h *PagesHandler) Expired(w http.ResponseWriter, r *http.Request, link *domain.ShortLink) {
	h.render(w, expiredTmpl, http.StatusGone, map[string]interface{}{
		"Title":       "Link expired",
		"OriginalURL": link.OriginalURL,
	})
}

// NotFound отдает страницу 404
func (h *PagesHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, notFoundTmpl, http.StatusNotFound, map[string]interface{}{
		"Title": "Link not found",
	})
}

func (h *PagesHandler) renderHome(w http.ResponseWriter, r *http.Request, errMsg string, status int) {
	totalLinks, err := h.storage.CountActiveLinks(r.Context())
	if err != nil {
		h.log.Warn("failed to count links for home page", zap.Error(err))
	}
	totalClicks, err := h.storage.CountClicks(r.Context())
	if err != nil {
		h.log.Warn("failed to count clicks for home page", zap.Error(err))
	}

	h.render(w, homeTmpl, status, map[string]interface{}{
		"Title":       "Shorten a URL",
		"TotalLinks":  totalLinks,
		"TotalClicks": totalClicks,
		"Error":       errMsg,
	})
}

func (h *PagesHandler) render(w http.ResponseWriter, tmpl *template.Template, status int, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		h.log.Error("failed to render page", zap.String("template", tmpl.Name()), zap.Error(err))
	}
}
