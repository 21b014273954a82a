package ui

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"ppcheck/domain/core"
	"ppcheck/internal"
	"ppcheck/internal/report"
	"ppcheck/ports"
)

// App is the report browser: a small read-only web app that lists persisted
// runs and renders their markdown diagnostic reports as HTML.
type App struct {
	router *chi.Mux
	repo   ports.RunRepository
	log    *internal.Logger
}

// NewApp creates the report browser over a run repository
func NewApp(repo ports.RunRepository, log *internal.Logger) *App {
	a := &App{
		router: chi.NewRouter(),
		repo:   repo,
		log:    log,
	}
	a.router.Use(middleware.Recoverer)
	a.router.Get("/", a.handleIndex)
	a.router.Get("/runs/{id}", a.handleRunReport)
	return a
}

// Run starts the report browser on the given port
func (a *App) Run(port string) error {
	a.log.Info("report browser listening on :%s", port)
	return http.ListenAndServe(":"+port, a.router)
}

// Handler exposes the router for tests
func (a *App) Handler() http.Handler {
	return a.router
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	recs, err := a.repo.ListRuns(r.Context(), 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><h1>Posterior predictive checks</h1><ul>")
	for _, rec := range recs {
		fmt.Fprintf(w, `<li><a href="/runs/%s">%s</a> — %s (n=%d)</li>`,
			rec.ID, rec.ID, rec.Dataset, rec.N)
	}
	fmt.Fprint(w, "</ul></body></html>")
}

func (a *App) handleRunReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := a.repo.GetRun(r.Context(), core.RunID(id))
	if err != nil {
		if core.IsNotFoundError(err) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	md := report.Build(rec, nil)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(renderMarkdown(md))
}

// renderMarkdown converts a markdown report to HTML
func renderMarkdown(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	doc := p.Parse([]byte(md))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.Render(doc, renderer)
}
