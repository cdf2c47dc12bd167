package config

type Config struct {
	ConfigVersion int           `yaml:"configVersion"`
	Rules         []Rule        `yaml:"rules"`
	Policy        PolicyConfig  `yaml:"policy"`
	Scan          ScanConfig    `yaml:"scan"`
	Server        ServerConfig  `yaml:"server"`
	Logging       LoggingConfig `yaml:"logging"`
	Metrics       MetricsConfig `yaml:"metrics"`

	baseDir string `yaml:"-"`
	path    string `yaml:"-"`
}

type Rule struct {
	ID              string   `yaml:"id"`
	Score           int      `yaml:"score"`
	Tags            []string `yaml:"tags"`
	Alphabet        string   `yaml:"alphabet"`
	CaseInsensitive bool     `yaml:"caseInsensitive"`
	Transforms      []string `yaml:"transforms"`
	// DecodeDepth bounds url_decode passes; 0 keeps the default.
	DecodeDepth     int      `yaml:"decodeDepth"`
	Patterns        []string `yaml:"patterns"`
	PatternsFile    string   `yaml:"patternsFile"`
	MaxMatches      int      `yaml:"maxMatches"`
}

type PolicyConfig struct {
	Mode      string `yaml:"mode"`
	Threshold int    `yaml:"threshold"`
}

type ScanConfig struct {
	ChunkSize        int   `yaml:"chunkSize"`
	MaxBufferedBytes int64 `yaml:"maxBufferedBytes"`
}

type ServerConfig struct {
	Listen       string          `yaml:"listen"`
	MaxBodyBytes int64           `yaml:"maxBodyBytes"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	FindingsLog string `yaml:"findingsLog"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

const (
	AlphabetBytes = "bytes"
	AlphabetRunes = "runes"
)

const (
	ModeReport  = "report"
	ModeEnforce = "enforce"
)

const (
	defaultChunkSize        = 64 << 10
	defaultMaxBufferedBytes = 8 << 20
	defaultMaxBodyBytes     = 1 << 20
)

// ResolvePath resolves path against the directory of the config file.
func (c *Config) ResolvePath(path string) string {
	return c.resolvePath(path)
}

// WatchPaths lists the config file and every referenced patterns file.
func (c *Config) WatchPaths() []string {
	paths := make([]string, 0, len(c.Rules)+1)
	if c.path != "" {
		paths = append(paths, c.path)
	}
	for _, rule := range c.Rules {
		if rule.PatternsFile != "" {
			paths = append(paths, c.resolvePath(rule.PatternsFile))
		}
	}
	return paths
}

func (c *Config) applyDefaults() {
	if c.Policy.Mode == "" {
		c.Policy.Mode = ModeReport
	}
	if c.Scan.ChunkSize == 0 {
		c.Scan.ChunkSize = defaultChunkSize
	}
	if c.Scan.MaxBufferedBytes == 0 {
		c.Scan.MaxBufferedBytes = defaultMaxBufferedBytes
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = defaultMaxBodyBytes
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	for i := range c.Rules {
		if c.Rules[i].Alphabet == "" {
			c.Rules[i].Alphabet = AlphabetBytes
		}
	}
}
