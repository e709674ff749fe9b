package dashboard

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"tradedash/internal/charts"
	"tradedash/internal/model"
)

//go:embed assets
var assets embed.FS

// StaticHandler serves the embedded stylesheet and icon. Mount it under /static/.
func StaticHandler() http.Handler {
	static, err := fs.Sub(assets, "assets/static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(static))
}

var pageFiles = map[string]string{
	ViewExplanations.Slug: "explanations.html",
	ViewMap.Slug:          "map.html",
	ViewTrade.Slug:        "evolution.html",
	ViewBoP.Slug:          "evolution.html",
	ViewSources.Slug:      "sources.html",
}

type pages struct {
	byView map[string]*template.Template
}

type pageData struct {
	Views     []View
	Active    View
	Provider  string
	Error     string
	Options   []string
	Selected  string
	Figure    any
	Empty     bool
	Entries   []charts.MapEntry
	Indicator model.Indicator
	ChartURL  string
}

var funcs = template.FuncMap{
	"value": charts.FormatValue,
}

func loadPages() (*pages, error) {
	base, err := template.New("layout.html").Funcs(funcs).ParseFS(assets, "assets/templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	p := &pages{byView: make(map[string]*template.Template, len(pageFiles))}
	for slug, file := range pageFiles {
		page, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := page.ParseFS(assets, "assets/templates/"+file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		p.byView[slug] = page
	}
	return p, nil
}

func (p *pages) render(view View, data pageData) ([]byte, error) {
	page, ok := p.byView[view.Slug]
	if !ok {
		return nil, fmt.Errorf("no page for view %s", view.Slug)
	}
	var buf bytes.Buffer
	if err := page.ExecuteTemplate(&buf, "layout", data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HandleIndex handles GET / and shows the default view.
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	h.serveView(w, r, Views[0])
}

// HandleView handles GET /views/{view}
func (h *Handler) HandleView(w http.ResponseWriter, r *http.Request) {
	view, ok := ViewBySlug(chi.URLParam(r, "view"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	h.serveView(w, r, view)
}

func (h *Handler) serveView(w http.ResponseWriter, r *http.Request, view View) {
	data := pageData{
		Views:     Views,
		Active:    view,
		Provider:  h.service.Provider(),
		Indicator: view.Indicator,
	}
	status := http.StatusOK

	var err error
	switch view {
	case ViewMap:
		err = h.fillMap(r, &data)
	case ViewTrade, ViewBoP:
		err = h.fillEvolution(r, view.Indicator, &data)
	}
	if err != nil {
		h.log.Error().Err(err).Str("view", view.Slug).Msg("Failed to load view")
		status = statusFor(err)
		data.Error = err.Error()
	}

	body, err := h.pages.render(view, data)
	if err != nil {
		h.log.Error().Err(err).Str("view", view.Slug).Msg("Failed to render page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// fillMap defaults to the most recent year.
func (h *Handler) fillMap(r *http.Request, data *pageData) error {
	years, err := h.service.Years(r.Context())
	if err != nil {
		return err
	}
	data.Options = years
	data.Selected = r.URL.Query().Get("year")
	if data.Selected == "" && len(years) > 0 {
		data.Selected = years[len(years)-1]
	}

	fig, err := h.service.MapFigure(r.Context(), data.Selected)
	if err != nil {
		return err
	}
	data.Figure = fig
	data.Empty = fig.Empty
	data.Entries = fig.Entries()
	return nil
}

// fillEvolution defaults to the first country in alphabetical order.
func (h *Handler) fillEvolution(r *http.Request, indicator model.Indicator, data *pageData) error {
	countries, err := h.service.Countries(r.Context(), indicator)
	if err != nil {
		return err
	}
	data.Options = countries
	data.Selected = r.URL.Query().Get("country")
	if data.Selected == "" && len(countries) > 0 {
		data.Selected = countries[0]
	}

	fig, err := h.service.Evolution(r.Context(), indicator, data.Selected)
	if err != nil {
		return err
	}
	data.Figure = fig
	data.Empty = fig.Empty
	data.ChartURL = "/api/charts/" + indicator.Slug() + "/" + url.PathEscape(fig.Country)
	return nil
}
