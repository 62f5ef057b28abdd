package configloader

import (
	"github.com/google/wire"

	loginfra "github.com/bionicotaku/attachment-ingest/internal/infrastructure/logger"
)

// ProviderSet exposes configuration-derived dependencies for Wire graphs.
var ProviderSet = wire.NewSet(
	ProvideRuntimeConfig,
	ProvideLoggerConfig,
	ProvidePubSubConfig,
	ProvideGCSConfig,
	ProvideFirestoreConfig,
	ProvidePipelineConfig,
	ProvideTranscoderConfig,
	ProvideMetricsConfig,
	ProvideServiceConfig,
)

// ProvideRuntimeConfig builds the runtime configuration from Params.
func ProvideRuntimeConfig(params Params) (*RuntimeConfig, error) {
	return Build(params)
}

// ProvideLoggerConfig converts service metadata into logger settings.
func ProvideLoggerConfig(cfg *RuntimeConfig) loginfra.Config {
	if cfg == nil {
		return loginfra.DefaultConfig("", "")
	}
	return loginfra.Config{
		Service: cfg.Service.Name,
		Version: cfg.Service.Version,
		HostID:  cfg.Service.InstanceID,
		Env:     cfg.Service.Environment,
		Level:   cfg.Log.Level,
	}
}

// ProvideServiceConfig returns the service identity section.
func ProvideServiceConfig(cfg *RuntimeConfig) ServiceConfig {
	if cfg == nil {
		return ServiceConfig{}
	}
	return cfg.Service
}

// ProvidePubSubConfig returns the pubsub section.
func ProvidePubSubConfig(cfg *RuntimeConfig) PubSubConfig {
	if cfg == nil {
		return PubSubConfig{}
	}
	return cfg.PubSub
}

// ProvideGCSConfig returns the gcs section.
func ProvideGCSConfig(cfg *RuntimeConfig) GCSConfig {
	if cfg == nil {
		return GCSConfig{}
	}
	return cfg.GCS
}

// ProvideFirestoreConfig returns the firestore section.
func ProvideFirestoreConfig(cfg *RuntimeConfig) FirestoreConfig {
	if cfg == nil {
		return FirestoreConfig{}
	}
	return cfg.Firestore
}

// ProvidePipelineConfig returns the pipeline section.
func ProvidePipelineConfig(cfg *RuntimeConfig) PipelineConfig {
	if cfg == nil {
		return PipelineConfig{}
	}
	return cfg.Pipeline
}

// ProvideTranscoderConfig returns the transcoder section.
func ProvideTranscoderConfig(cfg *RuntimeConfig) TranscoderConfig {
	if cfg == nil {
		return TranscoderConfig{}
	}
	return cfg.Transcoder
}

// ProvideMetricsConfig returns the metrics section.
func ProvideMetricsConfig(cfg *RuntimeConfig) MetricsConfig {
	if cfg == nil {
		return MetricsConfig{}
	}
	return cfg.Metrics
}
