package http

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/skip2/go-qrcode"
	"github.com/vadimbarashkov/shortlink/internal/database"
	"github.com/vadimbarashkov/shortlink/internal/models"
	"github.com/vadimbarashkov/shortlink/internal/queue"
	"github.com/vadimbarashkov/shortlink/internal/service"
	"github.com/vadimbarashkov/shortlink/pkg/response"
)

// handlePing handles health check requests to ensure the server is running.
func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

// healthResponse reports store reachability and cache counters.
type healthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	CacheHits   int64  `json:"cache_hits"`
	CacheMisses int64  `json:"cache_misses"`
}

// handleHealth handles GET requests for the service health report. The cache
// counters are best effort; an unreachable cache leaves them at zero without
// degrading the overall status.
func handleHealth(svc URLService, db Pinger) http.HandlerFunc {
	const op = "api.http.handleHealth"
	const successMsg = "The health report retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		data := healthResponse{
			Status:   "healthy",
			Database: "connected",
		}

		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				data.Status = "unhealthy"
				data.Database = "disconnected"
			}
		}

		if hits, misses, err := svc.CacheStats(r.Context()); err == nil {
			data.CacheHits = hits
			data.CacheMisses = misses
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, data))
	}
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusNotFound)
	render.JSON(w, r, response.ResourceNotFoundResponse)
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusMethodNotAllowed)
	render.JSON(w, r, response.Response{
		Status:  response.StatusError,
		Error:   "Method Not Allowed",
		Message: "The method is not allowed for the requested resource.",
	})
}

// shortenRequest represents the request payload for creating a shortened URL.
type shortenRequest struct {
	LongURL       string `json:"long_url" validate:"required,url"`
	CustomSlug    string `json:"custom_slug,omitempty" validate:"omitempty,alphanum,min=4,max=12"`
	ExpiresInDays *int   `json:"expires_in_days,omitempty" validate:"omitempty,min=1"`
}

// urlResponse represents the response payload for a shortened URL operation.
type urlResponse struct {
	Slug       string     `json:"slug"`
	ShortURL   string     `json:"short_url"`
	LongURL    string     `json:"long_url"`
	CustomSlug bool       `json:"custom_slug"`
	ClickCount int64      `json:"click_count,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// toURLResponse converts a URL model from the business layer into a response payload.
func toURLResponse(url *models.URL, baseURL string) urlResponse {
	return urlResponse{
		Slug:       url.Slug,
		ShortURL:   baseURL + "/" + url.Slug,
		LongURL:    url.LongURL,
		CustomSlug: url.CustomSlug,
		ExpiresAt:  url.ExpiresAt,
		CreatedAt:  url.CreatedAt,
		UpdatedAt:  url.UpdatedAt,
	}
}

// handleShortenURL handles POST requests to shorten a URL.
//
// The request must contain a valid URL and may carry a custom slug and an
// expiration in days. A taken custom slug yields 409; a malformed one 400.
func handleShortenURL(svc URLService, validate *validator.Validate, baseURL string) http.HandlerFunc {
	const op = "api.http.handleShortenURL"
	const successMsg = "The URL has been shortened successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		var req shortenRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		url, err := svc.ShortenURL(r.Context(), req.LongURL, req.CustomSlug, req.ExpiresInDays)
		if err != nil {
			switch {
			case errors.Is(err, database.ErrSlugExists):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.SlugConflictResponse)
			case errors.Is(err, service.ErrInvalidSlug):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.BadRequestResponse)
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.SuccessResponse(successMsg, toURLResponse(url, baseURL)))
	}
}

// handleRedirect handles GET requests at the root path and redirects to the
// long URL. The click event is handed to the queue before the redirect is
// written so analytics never delay the response.
func handleRedirect(svc URLService) http.HandlerFunc {
	const op = "api.http.handleRedirect"

	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")

		longURL, err := svc.ResolveSlug(r.Context(), slug)
		if err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		svc.RecordClick(r.Context(), queue.ClickEvent{
			Slug:      slug,
			IPAddress: clientIP(r),
			UserAgent: r.UserAgent(),
			Referer:   r.Referer(),
			ClickedAt: time.Now().UTC(),
		})

		http.Redirect(w, r, longURL, http.StatusFound)
	}
}

// clientIP returns the client address without the port. The RealIP
// middleware rewrites RemoteAddr to a bare host when forwarding headers are
// present; direct connections still carry an "ip:port" pair.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// handleGetURLInfo handles GET requests for a mapping's metadata and click count.
func handleGetURLInfo(svc URLService, baseURL string) http.HandlerFunc {
	const op = "api.http.handleGetURLInfo"
	const successMsg = "The URL info retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")

		info, err := svc.GetURLInfo(r.Context(), slug)
		if err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		data := toURLResponse(&info.URL, baseURL)
		data.ClickCount = info.ClickCount

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, data))
	}
}

// listURLsResponse represents a page of shortened URLs.
type listURLsResponse struct {
	URLs  []urlResponse `json:"urls"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Total int64         `json:"total"`
}

// handleListURLs handles GET requests for a paginated list of shortened URLs.
func handleListURLs(svc URLService, baseURL string) http.HandlerFunc {
	const op = "api.http.handleListURLs"
	const successMsg = "The URLs retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		page := queryInt(r, "page", 1)
		limit := queryInt(r, "limit", 20)
		if page < 1 {
			page = 1
		}
		if limit < 1 || limit > 100 {
			limit = 20
		}

		infos, total, err := svc.ListURLs(r.Context(), page, limit)
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		data := listURLsResponse{
			URLs:  make([]urlResponse, 0, len(infos)),
			Page:  page,
			Limit: limit,
			Total: total,
		}
		for _, info := range infos {
			item := toURLResponse(&info.URL, baseURL)
			item.ClickCount = info.ClickCount
			data.URLs = append(data.URLs, item)
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, data))
	}
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}

	return v
}

// handleDeleteURL handles DELETE requests to remove a mapping and its clicks.
func handleDeleteURL(svc URLService) http.HandlerFunc {
	const op = "api.http.handleDeleteURL"
	const successMsg = "The URL was successfully deleted."

	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")

		if err := svc.DeleteURL(r.Context(), slug); err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg))
	}
}

// clickStatsResponse represents aggregated click statistics for a mapping.
type clickStatsResponse struct {
	TotalClicks int64      `json:"total_clicks"`
	LastClick   *time.Time `json:"last_click,omitempty"`
	UniqueIPs   int64      `json:"unique_ips"`
}

// handleGetClickStats handles GET requests for a mapping's click statistics.
func handleGetClickStats(svc URLService) http.HandlerFunc {
	const op = "api.http.handleGetClickStats"
	const successMsg = "The URL statistics retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")

		stats, err := svc.GetClickStats(r.Context(), slug)
		if err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		data := clickStatsResponse{
			TotalClicks: stats.TotalClicks,
			LastClick:   stats.LastClick,
			UniqueIPs:   stats.UniqueIPs,
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, data))
	}
}

// handleGetQRCode handles GET requests for a PNG QR code pointing at the
// short URL. The mapping must exist; its long URL is not embedded.
func handleGetQRCode(svc URLService, baseURL string) http.HandlerFunc {
	const op = "api.http.handleGetQRCode"

	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")

		if _, err := svc.GetURLInfo(r.Context(), slug); err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		png, err := qrcode.Encode(baseURL+"/"+slug, qrcode.Medium, 256)
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		w.Write(png)
	}
}
