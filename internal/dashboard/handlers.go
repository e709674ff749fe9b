package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"tradedash/internal/charts"
	"tradedash/internal/fetcher"
	"tradedash/internal/model"
)

type Handler struct {
	service *Service
	pages   *pages
	log     zerolog.Logger
}

func NewHandler(service *Service, log zerolog.Logger) (*Handler, error) {
	pages, err := loadPages()
	if err != nil {
		return nil, err
	}
	return &Handler{
		service: service,
		pages:   pages,
		log:     log.With().Str("handler", "dashboard").Logger(),
	}, nil
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleIndex)
	r.Get("/views/{view}", h.HandleView)

	r.Route("/api", func(r chi.Router) {
		r.Get("/views", h.HandleViews)
		r.Get("/years", h.HandleYears)
		r.Get("/countries", h.HandleCountries)
		r.Get("/figures/map/{year}", h.HandleMapFigure)
		r.Get("/figures/{indicator}/{country}", h.HandleLineFigure)
		r.Get("/charts/{indicator}/{file}", h.HandleLineChart)
	})
}

// HandleViews handles GET /api/views
func (h *Handler) HandleViews(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, Views)
}

// HandleYears handles GET /api/years
func (h *Handler) HandleYears(w http.ResponseWriter, r *http.Request) {
	years, err := h.service.Years(r.Context())
	if err != nil {
		h.writeFetchError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, years)
}

// HandleCountries handles GET /api/countries?indicator=
func (h *Handler) HandleCountries(w http.ResponseWriter, r *http.Request) {
	indicator := model.TradePctGDP
	if raw := r.URL.Query().Get("indicator"); raw != "" {
		parsed, err := model.ParseIndicator(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		indicator = parsed
	}

	countries, err := h.service.Countries(r.Context(), indicator)
	if err != nil {
		h.writeFetchError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, countries)
}

// HandleMapFigure handles GET /api/figures/map/{year}
func (h *Handler) HandleMapFigure(w http.ResponseWriter, r *http.Request) {
	year := urlParam(r, "year")
	fig, err := h.service.MapFigure(r.Context(), year)
	if err != nil {
		h.writeFetchError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, fig)
}

// HandleLineFigure handles GET /api/figures/{indicator}/{country}
func (h *Handler) HandleLineFigure(w http.ResponseWriter, r *http.Request) {
	indicator, err := model.ParseIndicator(urlParam(r, "indicator"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	fig, err := h.service.Evolution(r.Context(), indicator, urlParam(r, "country"))
	if err != nil {
		h.writeFetchError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, fig)
}

// HandleLineChart handles GET /api/charts/{indicator}/{country}.{svg|png}
func (h *Handler) HandleLineChart(w http.ResponseWriter, r *http.Request) {
	indicator, err := model.ParseIndicator(urlParam(r, "indicator"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	file := urlParam(r, "file")
	ext := path.Ext(file)
	format, err := charts.ParseFormat(strings.TrimPrefix(ext, "."))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	country := strings.TrimSuffix(file, ext)

	fig, err := h.service.Evolution(r.Context(), indicator, country)
	if err != nil {
		h.writeFetchError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := charts.RenderLine(fig, format, &buf); err != nil {
		if errors.Is(err, charts.ErrEmptyFigure) {
			h.writeError(w, http.StatusNotFound, "no data for "+country)
			return
		}
		h.log.Error().Err(err).Str("country", country).Msg("Failed to render chart")
		h.writeError(w, http.StatusInternalServerError, "failed to render chart")
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func urlParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

// statusFor maps a service error to the status the user sees.
func statusFor(err error) int {
	switch {
	case fetcher.IsFetchError(err):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeFetchError(w http.ResponseWriter, err error) {
	h.log.Error().Err(err).Msg("Dashboard request failed")
	h.writeError(w, statusFor(err), err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
