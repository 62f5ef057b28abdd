package configloader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/joho/godotenv"
)

var envFileNames = []string{".env.local", ".env"}

// BuildError 捕获配置构建过程中的上下文错误信息。
type BuildError struct {
	Stage string
	Path  string
	Err   error
}

// Error 实现 error 接口，提供包含上下文的错误信息。
func (e BuildError) Error() string {
	if e.Stage == "" {
		return e.Err.Error()
	}
	if e.Path != "" {
		return fmt.Sprintf("config %s at %q: %v", e.Stage, e.Path, e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Stage, e.Err)
}

// Unwrap 暴露底层错误，支持 errors.Is/As 链式查询。
func (e BuildError) Unwrap() error {
	return e.Err
}

// envOverrides lists the environment variables that take precedence over the config file.
type envOverrides struct {
	ProjectID        string `env:"GOOGLE_CLOUD_PROJECT"`
	Subscription     string `env:"INGEST_SUBSCRIPTION"`
	DeadLetterTopic  string `env:"INGEST_DEAD_LETTER_TOPIC"`
	PubSubEmulator   string `env:"PUBSUB_EMULATOR_HOST"`
	FirestoreDB      string `env:"FIRESTORE_DATABASE"`
	SignerAccount    string `env:"GCS_SIGNER_ACCOUNT"`
	TranscoderEngine string `env:"TRANSCODER_ENGINE"`
	WorkDir          string `env:"INGEST_WORK_DIR"`
	LogLevel         string `env:"LOG_LEVEL"`
	ServiceName      string `env:"SERVICE_NAME"`
	ServiceVersion   string `env:"SERVICE_VERSION"`
	AppEnv           string `env:"APP_ENV"`
}

// Build 加载配置文件，应用环境变量覆盖与默认值，并完成校验。
//
// 流程：
// 1. 解析配置路径（应用回退规则）并加载 .env 文件
// 2. 通过 Kratos config 读取 YAML/JSON 并扫描到 RuntimeConfig
// 3. 应用环境变量覆盖与默认值
// 4. 解析派生字段并校验
func Build(params Params) (*RuntimeConfig, error) {
	confPath := ResolveConfPath(params.ConfPath)
	loadEnvFiles(confPath)

	cfg, err := loadFile(confPath)
	if err != nil {
		return nil, err
	}

	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return nil, BuildError{Stage: "env", Err: err}
	}
	applyEnvOverrides(cfg, ov)
	applyDefaults(cfg)

	if err := resolve(cfg); err != nil {
		return nil, BuildError{Stage: "resolve", Path: confPath, Err: err}
	}
	if err := validate(cfg); err != nil {
		return nil, BuildError{Stage: "validate", Path: confPath, Err: err}
	}
	return cfg, nil
}

// ResolveConfPath 应用回退规则确定要加载的配置目录/文件路径。
// 优先级：显式传入路径 > CONF_PATH 环境变量 > 默认路径。
func ResolveConfPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if v := os.Getenv(envConfPath); v != "" {
		return v
	}
	return defaultConfPath
}

func loadFile(confPath string) (*RuntimeConfig, error) {
	c := config.New(config.WithSource(file.NewSource(confPath)))
	if err := c.Load(); err != nil {
		return nil, BuildError{Stage: "load", Path: confPath, Err: err}
	}
	defer c.Close()

	var cfg RuntimeConfig
	if err := c.Scan(&cfg); err != nil {
		return nil, BuildError{Stage: "scan", Path: confPath, Err: err}
	}
	return &cfg, nil
}

// applyEnvOverrides 应用环境变量覆盖；环境变量为空时保留配置文件原值。
func applyEnvOverrides(cfg *RuntimeConfig, ov envOverrides) {
	if ov.ProjectID != "" {
		cfg.PubSub.ProjectID = ov.ProjectID
		if cfg.Firestore.ProjectID == "" {
			cfg.Firestore.ProjectID = ov.ProjectID
		}
	}
	setIfNotEmpty(&cfg.PubSub.SubscriptionID, ov.Subscription)
	setIfNotEmpty(&cfg.PubSub.DeadLetterTopicID, ov.DeadLetterTopic)
	setIfNotEmpty(&cfg.PubSub.EmulatorEndpoint, ov.PubSubEmulator)
	setIfNotEmpty(&cfg.Firestore.DatabaseID, ov.FirestoreDB)
	setIfNotEmpty(&cfg.GCS.SignerServiceAccount, ov.SignerAccount)
	setIfNotEmpty(&cfg.Transcoder.Engine, ov.TranscoderEngine)
	setIfNotEmpty(&cfg.Pipeline.WorkDir, ov.WorkDir)
	setIfNotEmpty(&cfg.Log.Level, ov.LogLevel)
	setIfNotEmpty(&cfg.Service.Name, ov.ServiceName)
	setIfNotEmpty(&cfg.Service.Version, ov.ServiceVersion)
	setIfNotEmpty(&cfg.Service.Environment, ov.AppEnv)
}

func applyDefaults(cfg *RuntimeConfig) {
	cfg.Service.Name = firstNonEmpty(cfg.Service.Name, defaultServiceName)
	cfg.Service.Version = firstNonEmpty(cfg.Service.Version, defaultServiceVersion)
	cfg.Service.Environment = firstNonEmpty(cfg.Service.Environment, defaultEnvironment)
	if host, err := os.Hostname(); err == nil {
		cfg.Service.InstanceID = host
	}
	cfg.Log.Level = firstNonEmpty(cfg.Log.Level, defaultLogLevel)

	if cfg.PubSub.MaxOutstandingMessages <= 0 {
		cfg.PubSub.MaxOutstandingMessages = defaultMaxOutstanding
	}
	if cfg.PubSub.NumGoroutines <= 0 {
		cfg.PubSub.NumGoroutines = defaultNumGoroutines
	}

	cfg.GCS.SignedURLExpires = firstNonEmpty(cfg.GCS.SignedURLExpires, defaultSignedURLExpires)
	cfg.GCS.SignedURLScheme = strings.ToLower(firstNonEmpty(cfg.GCS.SignedURLScheme, defaultSignedURLScheme))

	cfg.Firestore.ProjectID = firstNonEmpty(cfg.Firestore.ProjectID, cfg.PubSub.ProjectID)
	cfg.Firestore.OwnersCollection = firstNonEmpty(cfg.Firestore.OwnersCollection, defaultOwnersCollection)
	cfg.Firestore.OwnerIDField = firstNonEmpty(cfg.Firestore.OwnerIDField, defaultOwnerIDField)
	cfg.Firestore.AttachmentsCollection = firstNonEmpty(cfg.Firestore.AttachmentsCollection, defaultAttachmentsCollection)

	cfg.Pipeline.WorkDir = firstNonEmpty(cfg.Pipeline.WorkDir, os.TempDir())
	cfg.Pipeline.ReservedFilename = firstNonEmpty(cfg.Pipeline.ReservedFilename, defaultReservedFilename)

	cfg.Transcoder.Engine = strings.ToLower(firstNonEmpty(cfg.Transcoder.Engine, defaultEngine))
	cfg.Transcoder.MogrifyBin = firstNonEmpty(cfg.Transcoder.MogrifyBin, defaultMogrifyBin)
	cfg.Transcoder.ConvertBin = firstNonEmpty(cfg.Transcoder.ConvertBin, defaultConvertBin)
	setIntDefault(&cfg.Transcoder.MaxEdge, defaultMaxEdge)
	setIntDefault(&cfg.Transcoder.FullQuality, defaultFullQuality)
	setIntDefault(&cfg.Transcoder.ThumbSize, defaultThumbSize)
	setIntDefault(&cfg.Transcoder.ThumbQuality, defaultThumbQuality)

	cfg.Metrics.Exporter = strings.ToLower(firstNonEmpty(cfg.Metrics.Exporter, defaultMetricsExporter))
	cfg.Metrics.Interval = firstNonEmpty(cfg.Metrics.Interval, defaultMetricsInterval)
}

func resolve(cfg *RuntimeConfig) error {
	expiry, err := time.Parse("2006-01-02", cfg.GCS.SignedURLExpires)
	if err != nil {
		expiry, err = time.Parse(time.RFC3339, cfg.GCS.SignedURLExpires)
		if err != nil {
			return fmt.Errorf("gcs.signed_url_expires: %w", err)
		}
	}
	cfg.GCS.SignedURLExpiry = expiry.UTC()

	interval, err := time.ParseDuration(cfg.Metrics.Interval)
	if err != nil {
		return fmt.Errorf("metrics.interval: %w", err)
	}
	cfg.Metrics.IntervalDuration = interval
	return nil
}

func validate(cfg *RuntimeConfig) error {
	var errs []error
	if cfg.PubSub.ProjectID == "" {
		errs = append(errs, errors.New("pubsub.project_id is required"))
	}
	if cfg.PubSub.SubscriptionID == "" {
		errs = append(errs, errors.New("pubsub.subscription_id is required"))
	}
	if !cfg.GCS.SignedURLExpiry.After(time.Now()) {
		errs = append(errs, errors.New("gcs.signed_url_expires must be in the future"))
	}
	switch cfg.GCS.SignedURLScheme {
	case SignedURLSchemeV2, SignedURLSchemeV4:
	default:
		errs = append(errs, fmt.Errorf("gcs.signed_url_scheme %q is not supported", cfg.GCS.SignedURLScheme))
	}
	switch cfg.Transcoder.Engine {
	case EngineMagick, EngineImaging:
	default:
		errs = append(errs, fmt.Errorf("transcoder.engine %q is not supported", cfg.Transcoder.Engine))
	}
	if !validQuality(cfg.Transcoder.FullQuality) || !validQuality(cfg.Transcoder.ThumbQuality) {
		errs = append(errs, errors.New("transcoder quality must be within 1-100"))
	}
	switch cfg.Metrics.Exporter {
	case MetricsExporterNone, MetricsExporterStdout:
	default:
		errs = append(errs, fmt.Errorf("metrics.exporter %q is not supported", cfg.Metrics.Exporter))
	}
	return errors.Join(errs...)
}

// loadEnvFiles best-effort 加载配置相关的 .env 文件，失败时忽略以保持幂等。
func loadEnvFiles(confPath string) {
	files := envFileCandidates(confPath)
	if len(files) == 0 {
		return
	}
	_ = godotenv.Load(files...)
}

// envFileCandidates 按 confPath 目录 -> 当前工作目录的顺序返回存在的 .env 文件。
// godotenv 不会覆盖已设置的变量，因此靠前的文件优先生效。
func envFileCandidates(confPath string) []string {
	seen := make(map[string]struct{})
	var files []string
	for _, dir := range orderedDirs(confPath) {
		for _, name := range envFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err != nil {
				continue
			}
			if _, ok := seen[candidate]; ok {
				continue
			}
			files = append(files, candidate)
			seen[candidate] = struct{}{}
		}
	}
	return files
}

func orderedDirs(confPath string) []string {
	var dirs []string
	appendUnique := func(p string) {
		if p == "" {
			return
		}
		clean := filepath.Clean(p)
		for _, existing := range dirs {
			if existing == clean {
				return
			}
		}
		dirs = append(dirs, clean)
	}

	if confPath != "" {
		if info, err := os.Stat(confPath); err == nil {
			if info.IsDir() {
				appendUnique(confPath)
			} else {
				appendUnique(filepath.Dir(confPath))
			}
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		appendUnique(cwd)
	}
	return dirs
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setIntDefault(dst *int, v int) {
	if *dst <= 0 {
		*dst = v
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func validQuality(q int) bool {
	return q >= 1 && q <= 100
}
