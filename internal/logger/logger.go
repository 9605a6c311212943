package logger

import (
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger stays a no-op until Init so packages can log from tests.
var Logger = zap.NewNop()

var level = zap.NewAtomicLevelAt(zap.InfoLevel)

func Init(development bool, lvl string) error {
	var config zap.Config
	if development {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05")

	if err := SetLevel(lvl); err != nil {
		return err
	}
	if development && lvl == "" {
		level.SetLevel(zap.DebugLevel)
	}
	config.Level = level

	built, err := config.Build()
	if err != nil {
		return err
	}
	Logger = built
	return nil
}

// SetLevel changes the level of the running logger; an empty string keeps it.
func SetLevel(lvl string) error {
	if lvl == "" {
		return nil
	}
	parsed, err := zapcore.ParseLevel(lvl)
	if err != nil {
		return err
	}
	level.SetLevel(parsed)
	return nil
}

func Sync() {
	_ = Logger.Sync()
}

func Debug(msg string, fields ...zap.Field) {
	Logger.Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	Logger.Info(msg, fields...)
}

func Log(lvl zapcore.Level, msg string, fields ...zap.Field) {
	Logger.Log(lvl, msg, fields...)
}

func HttpRequestInfo(r *http.Request, msg string, fields ...zap.Field) {
	allFields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("query", r.URL.RawQuery),
		zap.String("client_ip", r.RemoteAddr),
	}
	allFields = append(allFields, fields...)
	Logger.Info(msg, allFields...)
}

func Error(msg string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	Logger.Error(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	Logger.Warn(msg, fields...)
}
