package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	DB                 string // connection string for the database
	NatsURL            string // url of the nats server (object store for raw logs)
	RedisAddr          string // host:port of the redis server (leaderboard)
	RedisPassword      string // password for redis
	RedisDB            int    // redis database number
	WaitForServices    string // duration to wait for other services to be ready
	LogLevel           string // sets the log level (zap log level values)
	SQLLogLevel        string // sets the log level for sql subsystem
	LogFormat          string // text vs json
	LogFilter          string // zapfilter rules, e.g. "*:dla.http error:*"
	MigrationSourceURL string // location of migration files
	EnableTelemetry    bool   // enable telemetry
	TelemetryEndpoint  string // endpoint for telemetry ("stdout" prints to console)
	HTTPServerAddr     string // listen addr for the http api
	MaxUploadSize      int64  // max bytes accepted per uploaded file
	ProfileFile        string // path to a yaml analysis profile (thresholds)
	AdvisoryURL        string // endpoint of the advisory text generator
	AdvisoryAPIKey     string // bearer token for the advisory text generator
	AdvisoryModel      string // model name passed to the advisory text generator
	AdvisoryTextPath   string // jsonpath of the text within the generator response
	AdvisoryTimeout    string // timeout for one advisory request
	StoreRetries       int    // max attempts for persisting a run
	ObjectStoreBucket  string // nats object store bucket for raw logs
	TLSCertFile        string // path to TLS certificate
	TLSKeyFile         string // path to TLS key
	TLSCAFile          string // path to TLS CA for client certificates
)

// Config holds the configuration values which are used by the application
type Config struct {
	Thresholds Thresholds
	Advisory   AdvisoryConfig
}

type AdvisoryConfig struct {
	URL      string
	APIKey   string
	Model    string
	TextPath string
	Timeout  string
}

// FromGlobals assembles a Config from the CLI resolved values.
func FromGlobals() (*Config, error) {
	th := DefaultThresholds()
	if ProfileFile != "" {
		var err error
		if th, err = LoadThresholds(ProfileFile); err != nil {
			return nil, err
		}
	}
	return &Config{
		Thresholds: th,
		Advisory: AdvisoryConfig{
			URL:      AdvisoryURL,
			APIKey:   AdvisoryAPIKey,
			Model:    AdvisoryModel,
			TextPath: AdvisoryTextPath,
			Timeout:  AdvisoryTimeout,
		},
	}, nil
}
