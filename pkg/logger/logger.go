package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps zap.Logger with component tagging
type Logger struct {
	*zap.Logger
	config Config
}

// Config holds logger configuration
type Config struct {
	Level       string
	Format      string
	File        string
	MaxSize     int
	MaxBackups  int
	MaxAge      int
	Development bool
}

// New creates a logger from config
func New(config Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	encoderConfig := encoderConfig(config.Development)
	var encoder zapcore.Encoder
	if config.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, writer(config), level)

	opts := []zap.Option{zap.AddCaller()}
	if config.Development {
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.ErrorLevel))
	}

	return &Logger{Logger: zap.New(core, opts...), config: config}, nil
}

func encoderConfig(development bool) zapcore.EncoderConfig {
	if development {
		return zap.NewDevelopmentEncoderConfig()
	}

	config := zap.NewProductionEncoderConfig()
	config.TimeKey = "timestamp"
	config.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncodeLevel = zapcore.CapitalLevelEncoder
	return config
}

// writer logs to stdout, and additionally to a rotated file when one is configured
func writer(config Config) zapcore.WriteSyncer {
	if config.File == "" {
		return zapcore.AddSync(os.Stdout)
	}

	if err := os.MkdirAll(filepath.Dir(config.File), 0755); err != nil {
		return zapcore.AddSync(os.Stdout)
	}

	rotating := &lumberjack.Logger{
		Filename:   config.File,
		MaxSize:    config.MaxSize, // MB
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge, // days
		Compress:   true,
	}
	return zapcore.AddSync(io.MultiWriter(os.Stdout, rotating))
}

// Sync flushes buffered entries
func (l *Logger) Sync() {
	_ = l.Logger.Sync()
}

// WithComponent returns a logger tagged with a component field
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.Logger.With(zap.String("component", component)),
		config: l.config,
	}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

func String(key, value string) zap.Field {
	return zap.String(key, value)
}

func Int(key string, value int) zap.Field {
	return zap.Int(key, value)
}

func Bool(key string, value bool) zap.Field {
	return zap.Bool(key, value)
}

func Time(key string, value time.Time) zap.Field {
	return zap.Time(key, value)
}

func Duration(key string, value time.Duration) zap.Field {
	return zap.Duration(key, value)
}

func Error(err error) zap.Field {
	return zap.Error(err)
}
