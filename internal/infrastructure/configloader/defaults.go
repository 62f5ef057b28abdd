package configloader

const (
	// defaultConfPath is the fallback configuration directory when no overrides are provided.
	defaultConfPath = "configs"
	// envConfPath is the env var name that overrides configuration directory when flag is absent.
	envConfPath = "CONF_PATH"

	defaultServiceName    = "attachment-ingest"
	defaultServiceVersion = "dev"
	defaultEnvironment    = "development"
	defaultLogLevel       = "info"

	defaultMaxOutstanding = 10
	defaultNumGoroutines  = 1

	// defaultSignedURLExpires keeps attachment links effectively permanent.
	defaultSignedURLExpires = "2500-03-01"
	defaultSignedURLScheme  = SignedURLSchemeV2

	defaultOwnersCollection      = "reports"
	defaultOwnerIDField          = "id"
	defaultAttachmentsCollection = "files"

	defaultReservedFilename = "logo.png"

	defaultEngine       = EngineMagick
	defaultMogrifyBin   = "mogrify"
	defaultConvertBin   = "convert"
	defaultMaxEdge      = 1800
	defaultFullQuality  = 75
	defaultThumbSize    = 500
	defaultThumbQuality = 90

	defaultMetricsExporter = MetricsExporterNone
	defaultMetricsInterval = "60s"
)

// Signed URL schemes.
const (
	SignedURLSchemeV2 = "v2"
	SignedURLSchemeV4 = "v4"
)

// Transcoding engines.
const (
	EngineMagick  = "magick"
	EngineImaging = "imaging"
)

// Metric exporters.
const (
	MetricsExporterNone   = "none"
	MetricsExporterStdout = "stdout"
)
