package receiver

type Config struct {
	DBPath     string
	TempDir    string
	OutDir     string
	SampleRate int // conversion rate for non-WAV input, probed when zero
	Logger     Logger
	Storage    Storage
	Profile    *Profile
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

// WithOutDir sets where decoded PNG images are written.
func WithOutDir(dir string) Option {
	return func(c *Config) {
		c.OutDir = dir
	}
}

func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func WithProfile(p *Profile) Option {
	return func(c *Config) {
		c.Profile = p
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:     "slowscan.sqlite3",
		TempDir:    "/tmp",
		OutDir:     "decodes",
		SampleRate: 0,
		Logger:     nil,
	}
}
