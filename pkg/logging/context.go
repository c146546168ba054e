package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	requestIDKey     contextKey = "request_id"
	loggerKey        contextKey = "logger"
)

// GenerateCorrelationID 生成短 ID（UUID 前 8 位），便于人工检索。
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// GenerateRequestID 生成完整 UUID。
func GenerateRequestID() string {
	return uuid.New().String()
}

func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithLogger 把 logger 放入 ctx，Ctx 会优先使用它。
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext 取出 ctx 中的 logger，没有则返回全局 logger。
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// Ctx 返回带 correlation_id / request_id 字段的 logger。
func Ctx(ctx context.Context) *zerolog.Logger {
	l := CtxWith(ctx, LoggerFromContext(ctx)).Logger()
	return &l
}

// CtxWith 在给定 logger 上附加 ctx 中的请求字段，组件 logger 用它关联请求。
//
//	n.logger(ctx).Warn().Str("source", name).Msg("recall failed")
func CtxWith(ctx context.Context, logger zerolog.Logger) zerolog.Context {
	lc := logger.With()
	if id := CorrelationIDFromContext(ctx); id != "" {
		lc = lc.Str("correlation_id", id)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		lc = lc.Str("request_id", id)
	}
	return lc
}
