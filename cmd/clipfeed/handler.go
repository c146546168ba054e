package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rushteam/clipfeed/core"
	"github.com/rushteam/clipfeed/pkg/logging"
	"github.com/rushteam/clipfeed/recommend"
)

// recommender 是 handler 需要的推荐能力。
type recommender interface {
	Recommend(ctx context.Context, req recommend.Request) ([]*core.Video, error)
}

type handler struct {
	rec            recommender
	defaultLimit   int
	maxLimit       int // <= 0 表示不限制
	requestTimeout time.Duration

	// logger 为 nil 时使用全局 logger
	logger *zerolog.Logger

	// checks 是健康检查项，key 为依赖名
	checks map[string]func(context.Context) error
}

func (h *handler) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(h.requestContext)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", h.health)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Get("/videos", h.videos)
	})
	return r
}

// requestContext 为每个请求生成 request_id / correlation_id，并把 handler 的 logger 放入 ctx，
// 下游 logging.Ctx 都会带上这两个字段。
func (h *handler) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = logging.GenerateRequestID()
		}
		w.Header().Set("X-Request-ID", id)

		ctx := r.Context()
		if h.logger != nil {
			ctx = logging.ContextWithLogger(ctx, *h.logger)
		}
		ctx = logging.ContextWithRequestID(ctx, id)
		ctx = logging.ContextWithCorrelationID(ctx, logging.GenerateCorrelationID())

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))
		logging.Ctx(ctx).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

// videoResponse 是返回给客户端的视频结构，不包含向量与 hashtag。
type videoResponse struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	VideoURL     string          `json:"videoUrl"`
	ThumbnailURL string          `json:"thumbnailUrl"`
	Duration     float64         `json:"duration"`
	UploadedAt   string          `json:"uploadedAt"`
	UpdatedAt    string          `json:"updatedAt"`
	Creator      string          `json:"creator"`
	Engagement   core.Engagement `json:"engagement"`
}

func toResponse(v *core.Video) videoResponse {
	return videoResponse{
		ID:           v.ID,
		Title:        v.Title,
		Description:  v.Description,
		VideoURL:     v.VideoURL,
		ThumbnailURL: v.ThumbnailURL,
		Duration:     v.Duration,
		UploadedAt:   formatTime(v.UploadedAt),
		UpdatedAt:    formatTime(v.UpdatedAt),
		Creator:      v.Creator,
		Engagement:   v.Engagement,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *handler) videos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := recommend.Request{
		SourceKind: core.SourceKind(q.Get("source_kind")),
		SourceID:   q.Get("source_id"),
		UserID:     q.Get("user_id"),
		Limit:      h.defaultLimit,
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, core.ErrorCodeInvalidInput, "limit must be an integer")
			return
		}
		req.Limit = n
	}
	if h.maxLimit > 0 && req.Limit > h.maxLimit {
		req.Limit = h.maxLimit
	}

	ctx := r.Context()
	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}

	videos, err := h.rec.Recommend(ctx, req)
	if err != nil {
		if de := core.GetDomainError(err); de != nil && de.Code == core.ErrorCodeInvalidInput {
			writeError(w, http.StatusBadRequest, de.Code, de.Message)
			return
		}
		logging.Ctx(ctx).Error().Err(err).Msg("recommend failed")
		writeError(w, http.StatusInternalServerError, core.ErrorCodeInternalError, "internal error")
		return
	}

	out := make([]videoResponse, len(videos))
	for i, v := range videos {
		out[i] = toResponse(v)
	}
	writeJSON(w, http.StatusOK, map[string]any{"videos": out})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}
	writeJSON(w, status, map[string]any{"status": http.StatusText(status), "checks": results})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]errorBody{"error": {Code: code, Message: message}})
}
