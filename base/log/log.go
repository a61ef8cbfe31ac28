// Copyright 2026 nopo Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package log

import (
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/emicklei/go-restful/v3"
	"github.com/go-sql-driver/mysql"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// RequestIDHeader carries the request id assigned by the HTTP layer.
const RequestIDHeader = "X-Request-ID"

const timeLayout = "2006-01-02 15:04:05.999999"

var logger = NewLogger(Options{Debug: true}, os.Stdout)

// Options of a logger. Path enables a rotated log file besides the writer.
type Options struct {
	Debug      bool
	Path       string
	MaxSize    int
	MaxAge     int
	MaxBackups int
}

// NewLogger creates a logger writing console lines in debug mode and JSON lines otherwise.
func NewLogger(opts Options, w io.Writer) *zap.Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	encoder, level := zapcore.NewJSONEncoder(cfg), zap.InfoLevel
	if opts.Debug {
		cfg = zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
		encoder, level = zapcore.NewConsoleEncoder(cfg), zap.DebugLevel
	}
	writers := []zapcore.WriteSyncer{zapcore.AddSync(w)}
	if opts.Path != "" {
		writers = append(writers, zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    opts.MaxSize,
			MaxAge:     opts.MaxAge,
			MaxBackups: opts.MaxBackups,
		}))
	}
	return zap.New(zapcore.NewCore(encoder, zap.CombineWriteSyncers(writers...), level))
}

// Logger returns the process-wide logger.
func Logger() *zap.Logger {
	return logger
}

// ResponseLogger returns a logger tagged with the request id of the response.
func ResponseLogger(resp *restful.Response) *zap.Logger {
	return logger.With(zap.String("request_id", resp.Header().Get(RequestIDHeader)))
}

func AddFlags(flagSet *pflag.FlagSet) {
	flagSet.String("log-path", "", "path of log file")
	flagSet.Int("log-max-size", 100, "maximum size in megabytes of the log file")
	flagSet.Int("log-max-age", 0, "maximum number of days to retain old log files")
	flagSet.Int("log-max-backups", 0, "maximum number of old log files to retain")
}

// SetLogger replaces the process-wide logger using log flags.
func SetLogger(flagSet *pflag.FlagSet, debug bool) {
	opts := Options{Debug: debug}
	opts.Path, _ = flagSet.GetString("log-path")
	opts.MaxSize, _ = flagSet.GetInt("log-max-size")
	opts.MaxAge, _ = flagSet.GetInt("log-max-age")
	opts.MaxBackups, _ = flagSet.GetInt("log-max-backups")
	logger = NewLogger(opts, os.Stdout)
}

// Sync flushes buffered logs. Errors syncing stdout are ignored.
func Sync() {
	_ = logger.Sync()
}

const (
	mysqlPrefix  = "mysql://"
	sqlitePrefix = "sqlite://"
	passwordMask = "xxxxx"
)

// RedactDBURL masks the password in a data store URL. SQLite URLs carry no credentials.
func RedactDBURL(rawURL string) string {
	switch {
	case strings.HasPrefix(rawURL, sqlitePrefix):
		return rawURL
	case strings.HasPrefix(rawURL, mysqlPrefix):
		dsn, err := mysql.ParseDSN(strings.TrimPrefix(rawURL, mysqlPrefix))
		if err != nil || dsn.Passwd == "" {
			return rawURL
		}
		dsn.Passwd = passwordMask
		return mysqlPrefix + dsn.FormatDSN()
	default:
		parsed, err := url.Parse(rawURL)
		if err != nil || parsed.User == nil {
			return rawURL
		}
		if _, ok := parsed.User.Password(); !ok {
			return rawURL
		}
		parsed.User = url.UserPassword(parsed.User.Username(), passwordMask)
		return parsed.String()
	}
}

// GetErrorHandler logs OpenTelemetry failures.
func GetErrorHandler() otel.ErrorHandler {
	return otel.ErrorHandlerFunc(func(err error) {
		logger.Error("opentelemetry failure", zap.Error(err))
	})
}
