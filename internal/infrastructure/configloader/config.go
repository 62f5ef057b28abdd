// Package configloader loads and validates the runtime configuration of the ingest worker.
package configloader

import "time"

// Params 包含构造配置所需的运行时输入参数。
type Params struct {
	ConfPath string // 配置文件路径（可为空，使用默认值）
}

// RuntimeConfig aggregates every configuration section consumed by the worker.
type RuntimeConfig struct {
	Service    ServiceConfig    `json:"service"`
	Log        LogConfig        `json:"log"`
	PubSub     PubSubConfig     `json:"pubsub"`
	GCS        GCSConfig        `json:"gcs"`
	Firestore  FirestoreConfig  `json:"firestore"`
	Pipeline   PipelineConfig   `json:"pipeline"`
	Transcoder TranscoderConfig `json:"transcoder"`
	Metrics    MetricsConfig    `json:"metrics"`
}

// ServiceConfig carries service identity used by logs and metrics.
type ServiceConfig struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
	InstanceID  string `json:"-"`
}

// LogConfig controls log verbosity.
type LogConfig struct {
	Level string `json:"level"`
}

// PubSubConfig describes the notification subscription and the optional dead-letter topic.
type PubSubConfig struct {
	ProjectID              string `json:"project_id"`
	SubscriptionID         string `json:"subscription_id"`
	DeadLetterTopicID      string `json:"dead_letter_topic_id"`
	MaxOutstandingMessages int    `json:"max_outstanding_messages"`
	NumGoroutines          int    `json:"num_goroutines"`
	EmulatorEndpoint       string `json:"emulator_endpoint"`
}

// GCSConfig describes signed URL issuance.
type GCSConfig struct {
	SignerServiceAccount string `json:"signer_service_account"`
	SignedURLExpires     string `json:"signed_url_expires"`
	SignedURLScheme      string `json:"signed_url_scheme"`
	EmulatorEndpoint     string `json:"emulator_endpoint"`

	// SignedURLExpiry is resolved from SignedURLExpires during Build.
	SignedURLExpiry time.Time `json:"-"`
}

// FirestoreConfig describes where owner records and attachments live.
type FirestoreConfig struct {
	ProjectID             string `json:"project_id"`
	DatabaseID            string `json:"database_id"`
	OwnersCollection      string `json:"owners_collection"`
	OwnerIDField          string `json:"owner_id_field"`
	AttachmentsCollection string `json:"attachments_collection"`
}

// PipelineConfig tunes the ingestion pipeline.
type PipelineConfig struct {
	WorkDir            string `json:"work_dir"`
	ReservedFilename   string `json:"reserved_filename"`
	RequireSingleOwner bool   `json:"require_single_owner"`
}

// TranscoderConfig selects and parameterizes the transcoding engine.
type TranscoderConfig struct {
	Engine       string `json:"engine"`
	MogrifyBin   string `json:"mogrify_bin"`
	ConvertBin   string `json:"convert_bin"`
	MaxEdge      int    `json:"max_edge"`
	FullQuality  int    `json:"full_quality"`
	ThumbSize    int    `json:"thumb_size"`
	ThumbQuality int    `json:"thumb_quality"`
}

// MetricsConfig selects the metric exporter.
type MetricsConfig struct {
	Exporter string `json:"exporter"`
	Interval string `json:"interval"`

	// IntervalDuration is resolved from Interval during Build.
	IntervalDuration time.Duration `json:"-"`
}
