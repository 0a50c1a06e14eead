package cfg

type Cfg struct {
	// Cache configuration
	CacheDir       string
	CacheTTLHours  int
	CacheMaxSizeMB int

	// Collector configuration
	UpstreamURL        string
	MinRequestInterval float64
	BaseBackoffDelay   float64
	MaxBackoffDelay    float64
	RetryCount         int
	RequestTimeout     int
	MockMode           bool

	// Batch processing configuration
	BatchSize         int
	ForceRefresh      bool
	UnsafeConcurrency bool

	// Application configuration
	SeedsDir          string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
