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

package config

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/juju/errors"
	"github.com/nopo-io/nopo/base/log"
	"github.com/nopo-io/nopo/storage"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// Config is the configuration for the server.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	DataStore   string `mapstructure:"data_store" validate:"required,data_store"`
	TablePrefix string `mapstructure:"table_prefix"`
}

// ServerConfig is the configuration for the HTTP server.
type ServerConfig struct {
	HttpHost        string        `mapstructure:"http_host"`
	HttpPort        int           `mapstructure:"http_port" validate:"gte=1,lte=65535"`
	APIKey          string        `mapstructure:"api_key"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// RecommendConfig is the configuration for recommendation.
type RecommendConfig struct {
	TopN           int     `mapstructure:"top_n" validate:"gt=0"`
	Neighbors      int     `mapstructure:"neighbors" validate:"gt=0"`
	SVDRank        int     `mapstructure:"svd_rank" validate:"gt=0"`
	RandomSize     int     `mapstructure:"random_size" validate:"gte=0"`
	CuratedSize    int     `mapstructure:"curated_size" validate:"gt=0"`
	LocationRadius float64 `mapstructure:"location_radius" validate:"gt=0"`
	ThirtyGrade    string  `mapstructure:"thirty_grade" validate:"required"`
	DeveloperPicks []int64 `mapstructure:"developer_picks"`
	YoutuberPicks  []int64 `mapstructure:"youtuber_picks"`
}

// TracingConfig is the configuration for OpenTelemetry tracing.
type TracingConfig struct {
	EnableTracing     bool    `mapstructure:"enable_tracing"`
	Exporter          string  `mapstructure:"exporter" validate:"oneof=zipkin otlp otlphttp"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"`
	Sampler           string  `mapstructure:"sampler" validate:"oneof=always never ratio"`
	Ratio             float64 `mapstructure:"ratio" validate:"gte=0,lte=1"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DataStore: "sqlite://nopo.db",
		},
		Server: ServerConfig{
			HttpHost:        "0.0.0.0",
			HttpPort:        8088,
			ShutdownTimeout: 10 * time.Second,
		},
		Recommend: RecommendConfig{
			TopN:           10,
			Neighbors:      15,
			SVDRank:        1,
			RandomSize:     2,
			CuratedSize:    20,
			LocationRadius: 0.054,
			ThirtyGrade:    "THIRTY",
			DeveloperPicks: []int64{1445, 994, 1098, 1431, 563, 666, 277, 616, 995, 1222, 1430, 363, 1401, 1358, 473, 684, 62, 1131, 1402},
			YoutuberPicks:  []int64{1428, 732, 133, 596, 828, 1080, 1189, 1000, 987, 764, 129, 814, 66, 806, 369, 1104, 1265, 646, 1380, 941, 386},
		},
		Tracing: TracingConfig{
			Exporter: "otlp",
			Sampler:  "always",
			Ratio:    1,
		},
	}
}

func setDefault(v *viper.Viper) {
	defaultConfig := GetDefaultConfig()
	// [database]
	v.SetDefault("database.data_store", defaultConfig.Database.DataStore)
	v.SetDefault("database.table_prefix", defaultConfig.Database.TablePrefix)
	// [server]
	v.SetDefault("server.http_host", defaultConfig.Server.HttpHost)
	v.SetDefault("server.http_port", defaultConfig.Server.HttpPort)
	v.SetDefault("server.api_key", defaultConfig.Server.APIKey)
	v.SetDefault("server.shutdown_timeout", defaultConfig.Server.ShutdownTimeout)
	// [recommend]
	v.SetDefault("recommend.top_n", defaultConfig.Recommend.TopN)
	v.SetDefault("recommend.neighbors", defaultConfig.Recommend.Neighbors)
	v.SetDefault("recommend.svd_rank", defaultConfig.Recommend.SVDRank)
	v.SetDefault("recommend.random_size", defaultConfig.Recommend.RandomSize)
	v.SetDefault("recommend.curated_size", defaultConfig.Recommend.CuratedSize)
	v.SetDefault("recommend.location_radius", defaultConfig.Recommend.LocationRadius)
	v.SetDefault("recommend.thirty_grade", defaultConfig.Recommend.ThirtyGrade)
	v.SetDefault("recommend.developer_picks", defaultConfig.Recommend.DeveloperPicks)
	v.SetDefault("recommend.youtuber_picks", defaultConfig.Recommend.YoutuberPicks)
	// [tracing]
	v.SetDefault("tracing.enable_tracing", defaultConfig.Tracing.EnableTracing)
	v.SetDefault("tracing.exporter", defaultConfig.Tracing.Exporter)
	v.SetDefault("tracing.sampler", defaultConfig.Tracing.Sampler)
	v.SetDefault("tracing.ratio", defaultConfig.Tracing.Ratio)
}

type configBinding struct {
	key string
	env string
}

// LoadConfig loads configuration from toml file. Environment variables override the file.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	// set default config
	setDefault(v)

	// bind environment bindings
	bindings := []configBinding{
		{"database.data_store", "NOPO_DATA_STORE"},
		{"database.table_prefix", "NOPO_TABLE_PREFIX"},
		{"server.api_key", "NOPO_SERVER_API_KEY"},
		{"server.http_host", "NOPO_SERVER_HTTP_HOST"},
		{"server.http_port", "NOPO_SERVER_HTTP_PORT"},
		{"tracing.enable_tracing", "NOPO_ENABLE_TRACING"},
		{"tracing.collector_endpoint", "NOPO_COLLECTOR_ENDPOINT"},
	}
	for _, binding := range bindings {
		if err := v.BindEnv(binding.key, binding.env); err != nil {
			log.Logger().Fatal("failed to bind a Viper key to a ENV variable", zap.Error(err))
		}
	}

	// load config file
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}

	// unmarshal config file
	var conf Config
	if err := v.Unmarshal(&conf, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

func (config *Config) Validate() error {
	validate := validator.New()
	if err := validate.RegisterValidation("data_store", func(fl validator.FieldLevel) bool {
		prefixes := []string{
			storage.MySQLPrefix,
			storage.PostgresPrefix,
			storage.PostgreSQLPrefix,
			storage.MongoPrefix,
			storage.MongoSrvPrefix,
			storage.SQLitePrefix,
		}
		return lo.ContainsBy(prefixes, func(prefix string) bool {
			return strings.HasPrefix(fl.Field().String(), prefix)
		})
	}); err != nil {
		return errors.Trace(err)
	}
	return validate.Struct(config)
}

func (config *TracingConfig) NewTracerProvider() (trace.TracerProvider, error) {
	if !config.EnableTracing {
		return noop.NewTracerProvider(), nil
	}

	var exporter tracesdk.SpanExporter
	var err error
	switch config.Exporter {
	case "zipkin":
		exporter, err = zipkin.New(config.CollectorEndpoint)
		if err != nil {
			return nil, errors.Trace(err)
		}
	case "otlp":
		client := otlptracegrpc.NewClient(otlptracegrpc.WithInsecure(), otlptracegrpc.WithEndpoint(config.CollectorEndpoint))
		exporter, err = otlptrace.New(context.TODO(), client)
		if err != nil {
			return nil, errors.Trace(err)
		}
	case "otlphttp":
		client := otlptracehttp.NewClient(otlptracehttp.WithInsecure(), otlptracehttp.WithEndpoint(config.CollectorEndpoint))
		exporter, err = otlptrace.New(context.TODO(), client)
		if err != nil {
			return nil, errors.Trace(err)
		}
	default:
		return nil, errors.NotSupportedf("exporter %s", config.Exporter)
	}

	var sampler tracesdk.Sampler
	switch config.Sampler {
	case "always":
		sampler = tracesdk.AlwaysSample()
	case "never":
		sampler = tracesdk.NeverSample()
	case "ratio":
		sampler = tracesdk.TraceIDRatioBased(config.Ratio)
	default:
		return nil, errors.NotSupportedf("sampler %s", config.Sampler)
	}

	return tracesdk.NewTracerProvider(
		tracesdk.WithSampler(sampler),
		tracesdk.WithBatcher(exporter),
		tracesdk.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("nopo"),
		)),
	), nil
}
