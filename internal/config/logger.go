package config

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// AppName is used to name loggers and files
const AppName = "stylepick"

type ConsoleLoggerConfig struct {
	Level string `yaml:"level" validate:"required,oneof=none debug normal"`
}

type LoggerConfig struct {
	Level       string `yaml:"level" validate:"required,oneof=none debug normal"`
	Destination string `yaml:"destination,omitempty" validate:"required_unless=Level none"`
	MaxSize     int    `yaml:"max_size,omitempty" validate:"gte=0"`
	MaxBackups  int    `yaml:"max_backups,omitempty" validate:"gte=0"`
	MaxAge      int    `yaml:"max_age,omitempty" validate:"gte=0"`
	Compress    bool   `yaml:"compress,omitempty"`
}

type LoggingConfig struct {
	FileLogger    LoggerConfig        `yaml:"file"`
	ConsoleLogger ConsoleLoggerConfig `yaml:"console"`
}

// Prepare returns our standard logger. Console output always goes to stderr,
// stdout carries command results.
func (conf *LoggingConfig) Prepare() (*zap.Logger, error) {
	return conf.prepare(os.Stderr)
}

func (conf *LoggingConfig) prepare(console io.Writer) (*zap.Logger, error) {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	ec.TimeKey = zapcore.OmitKey
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	consoleEncoder := zapcore.NewConsoleEncoder(ec)

	var consoleCore zapcore.Core
	switch conf.ConsoleLogger.Level {
	case "normal":
		consoleCore = zapcore.NewCore(consoleEncoder, zapcore.Lock(zapcore.AddSync(console)), zapcore.InfoLevel)
	case "debug":
		consoleCore = zapcore.NewCore(consoleEncoder, zapcore.Lock(zapcore.AddSync(console)), zapcore.DebugLevel)
	default:
		consoleCore = zapcore.NewNopCore()
	}

	var (
		fileCore zapcore.Core
		level    zapcore.Level
	)
	switch conf.FileLogger.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "normal":
		level = zapcore.InfoLevel
	}
	if conf.FileLogger.Level == "debug" || conf.FileLogger.Level == "normal" {
		// lumberjack handles rotation
		w := zapcore.AddSync(&lumberjack.Logger{
			Filename:   conf.FileLogger.Destination,
			MaxSize:    conf.FileLogger.MaxSize,
			MaxBackups: conf.FileLogger.MaxBackups,
			MaxAge:     conf.FileLogger.MaxAge,
			Compress:   conf.FileLogger.Compress,
		})
		fileCore = zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), w, level)
	} else {
		fileCore = zapcore.NewNopCore()
	}

	return zap.New(zapcore.NewTee(consoleCore, fileCore), zap.AddCaller()).Named(AppName), nil
}
