package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"time"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Output          string `json:"output"` // "stdout", "file" or "both"
	OutputFileName  string `json:"outputFileName"`
	OutputDirectory string `json:"outputDirectory"`
	Level           string `json:"level"`
}

var std = logrus.New()

func Init(cfg *Config) error {
	std.SetFormatter(&nested.Formatter{
		TimestampFormat: time.RFC3339,
		HideKeys:        false,
		NoColors:        true,
	})

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	std.SetLevel(level)

	switch cfg.Output {
	case "", "stdout":
		std.SetOutput(os.Stdout)

	case "file", "both":
		if err := os.MkdirAll(cfg.OutputDirectory, 0755); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}

		file, err := os.OpenFile(
			filepath.Join(cfg.OutputDirectory, cfg.OutputFileName),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND,
			0644,
		)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}

		if cfg.Output == "both" {
			std.SetOutput(io.MultiWriter(os.Stdout, file))
		} else {
			std.SetOutput(file)
		}

	default:
		return fmt.Errorf("unknown log output: %s", cfg.Output)
	}

	return nil
}

type Logger = logrus.Entry

func WithField(key string, value any) *Logger {
	return std.WithField(key, value)
}

// WithType tags the entry with the name of T, used by periodic jobs and
// services to identify themselves.
func WithType[T any](key string) *Logger {
	return std.WithField(key, reflect.TypeOf((*T)(nil)).Elem().Name())
}

func Debugf(format string, args ...any) { std.Debugf(format, args...) }
func Infof(format string, args ...any)  { std.Infof(format, args...) }
func Warnf(format string, args ...any)  { std.Warnf(format, args...) }
func Errorf(format string, args ...any) { std.Errorf(format, args...) }
func Fatalf(format string, args ...any) { std.Fatalf(format, args...) }

func Debug(args ...any) { std.Debug(args...) }
func Info(args ...any)  { std.Info(args...) }
func Warn(args ...any)  { std.Warn(args...) }
func Error(args ...any) { std.Error(args...) }
