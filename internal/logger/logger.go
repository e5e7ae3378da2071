package logger

import (
	"fmt"
	"strings"

	"github.com/kube-rca/migration-audit/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultConfig - stdout JSON 로거 기본 설정
func DefaultConfig() zap.Config {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

// New - LOG_LEVEL / LOG_FORMAT 설정으로 로거 생성
func New(cfg config.LogConfig) (*zap.Logger, error) {
	zcfg := DefaultConfig()

	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.Level, err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	if cfg.Output != "" {
		zcfg.OutputPaths = []string{cfg.Output}
	}

	switch cfg.Format {
	case "", "json":
	case "console":
		zcfg.Encoding = "console"
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q", cfg.Format)
	}

	return zcfg.Build()
}
