// Package logging 提供基于 zerolog 的全局结构化日志。
//
// 启动时调用 Init 配置一次，之后各组件通过 WithComponent 派生自己的 logger，
// 请求链路内使用 Ctx(ctx) 自动带上 request_id / correlation_id。
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Msg("server starting")
//	logging.Ctx(ctx).Warn().Err(err).Msg("subset failed")
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config 日志配置。
type Config struct {
	// Level: trace / debug / info / warn / error / disabled，默认 info
	Level string `koanf:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic disabled"`

	// Format: json / console，默认 json
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`

	// Caller 输出调用位置
	Caller bool `koanf:"caller"`

	// Timestamp 输出时间戳
	Timestamp bool `koanf:"timestamp"`

	// Output 默认 os.Stderr
	Output io.Writer `koanf:"-"`
}

// DefaultConfig 返回默认日志配置。
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    "json",
		Timestamp: true,
		Output:    os.Stderr,
	}
}

var (
	log zerolog.Logger
	mu  sync.RWMutex
)

func init() {
	initLogger(DefaultConfig())
}

// Init 配置全局 logger，可重复调用。
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	initLogger(cfg)
}

// initLogger 需要持有 mu
func initLogger(cfg Config) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "json"
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	output := cfg.Output
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}

	l := zerolog.New(output)
	if cfg.Timestamp {
		l = l.With().Timestamp().Logger()
	}
	if cfg.Caller {
		l = l.With().Caller().Logger()
	}
	log = l
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Logger 返回全局 logger。
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// WithComponent 派生带 component 字段的 logger。
//
//	logger := logging.WithComponent("recall.fanout")
func WithComponent(component string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log.With().Str("component", component).Logger()
}

func Debug() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Debug()
}

func Info() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Info()
}

func Warn() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Warn()
}

func Error() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Error()
}

// Fatal 记录后调用 os.Exit(1)。
func Fatal() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Fatal()
}

// NewTestLogger 创建写入 w 的 logger，用于在测试中断言日志内容。
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
