// Package config loads SignMaker settings from a TOML file, a .env file and
// the environment, in increasing order of precedence.
//
// The file is found via, in order: the --config flag, $SIGNMAKER_CONFIG,
// then $XDG_CONFIG_HOME/signmaker/config.toml. A missing file is not an
// error; built-in defaults apply.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/northbynortheast/signmaker/pkg/errors"
)

// EnvConfig names the config file path variable.
const EnvConfig = "SIGNMAKER_CONFIG"

// Duration is a time.Duration written as "20s" in TOML.
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Config is the full configuration.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Cache    CacheConfig    `toml:"cache"`
	Storage  StorageConfig  `toml:"storage"`
	Render   RenderConfig   `toml:"render"`
	Assets   AssetsConfig   `toml:"assets"`
	Server   ServerConfig   `toml:"server"`
	Jobs     JobsConfig     `toml:"jobs"`
	Log      LogConfig      `toml:"log"`

	// Path is the file the config was read from, if any.
	Path string `toml:"-"`
}

type DatabaseConfig struct {
	Driver string `toml:"driver"` // sqlite or mongo
	Path   string `toml:"path"`
	URI    string `toml:"uri"`
	Name   string `toml:"name"`
}

type CacheConfig struct {
	Backend  string   `toml:"backend"` // file, redis or none
	Dir      string   `toml:"dir"`
	RedisURL string   `toml:"redis_url"`
	TTL      Duration `toml:"ttl"`
}

type StorageConfig struct {
	AccountID       string `toml:"account_id"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	Bucket          string `toml:"bucket"`
	PublicURL       string `toml:"public_url"`
	Endpoint        string `toml:"endpoint"`
	Insecure        bool   `toml:"insecure"`
	CreateBucket    bool   `toml:"create_bucket"`
}

type RenderConfig struct {
	ChromeBin   string   `toml:"chrome_bin"`
	ControlURL  string   `toml:"control_url"`
	Scale       float64  `toml:"scale"`
	Timeout     Duration `toml:"timeout"`
	Concurrency int      `toml:"concurrency"`
	MaxPages    int      `toml:"max_pages"`
}

// AssetsConfig points at directories that override the embedded assets.
// Files found there shadow the built-in ones of the same name.
type AssetsConfig struct {
	TemplatesDir string `toml:"templates_dir"`
	IconsDir     string `toml:"icons_dir"`
	BoundsDir    string `toml:"bounds_dir"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type JobsConfig struct {
	Workers   int      `toml:"workers"`
	Retention Duration `toml:"retention"`
}

type LogConfig struct {
	File string `toml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: "sqlite", Path: filepath.Join(dataDir(), "products.db"), Name: "signmaker"},
		Cache:    CacheConfig{Backend: "file", TTL: Duration{7 * 24 * time.Hour}},
		Storage:  StorageConfig{Bucket: "productimages"},
		Render:   RenderConfig{Scale: 4, Timeout: Duration{20 * time.Second}, Concurrency: 4, MaxPages: 4},
		Server:   ServerConfig{Addr: ":5000"},
		Jobs:     JobsConfig{Workers: 2, Retention: Duration{time.Hour}},
	}
}

func dataDir() string {
	if d := os.Getenv("XDG_DATA_HOME"); d != "" {
		return filepath.Join(d, "signmaker")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "signmaker")
	}
	return "."
}

// DefaultPath returns $XDG_CONFIG_HOME/signmaker/config.toml.
func DefaultPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "signmaker", "config.toml")
}

// Resolve picks the config file path: flag, then $SIGNMAKER_CONFIG, then
// the default location when it exists. It returns "" when none applies.
func Resolve(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(EnvConfig); env != "" {
		return env
	}
	if p := DefaultPath(); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load reads the config file chosen by Resolve(flag), loads .env from the
// working directory and applies environment overrides.
func Load(flag string) (*Config, error) {
	cfg := Default()

	if path := Resolve(flag); path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "read config %s", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.New(errors.ErrCodeConfiguration, "unknown config key %q in %s", undecoded[0].String(), path)
		}
		cfg.Path = path
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "read .env")
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables looked up by env.
func (c *Config) ApplyEnv(env func(string) (string, bool)) error {
	str := map[string]*string{
		"R2_ACCOUNT_ID":        &c.Storage.AccountID,
		"R2_ACCESS_KEY_ID":     &c.Storage.AccessKeyID,
		"R2_SECRET_ACCESS_KEY": &c.Storage.SecretAccessKey,
		"R2_BUCKET_NAME":       &c.Storage.Bucket,
		"R2_PUBLIC_URL":        &c.Storage.PublicURL,
		"R2_ENDPOINT":          &c.Storage.Endpoint,
		"SIGNMAKER_DB":         &c.Database.Path,
		"SIGNMAKER_MONGO_URI":  &c.Database.URI,
		"REDIS_URL":            &c.Cache.RedisURL,
		"CHROME_BIN":           &c.Render.ChromeBin,
		"SIGNMAKER_ADDR":       &c.Server.Addr,
		"SIGNMAKER_LOG_FILE":   &c.Log.File,
	}
	for key, dst := range str {
		if v, ok := env(key); ok && v != "" {
			*dst = v
		}
	}
	if _, ok := env("SIGNMAKER_MONGO_URI"); ok && c.Database.URI != "" {
		c.Database.Driver = "mongo"
	}
	if v, ok := env("REDIS_URL"); ok && v != "" && c.Cache.Backend == "file" {
		c.Cache.Backend = "redis"
	}
	if v, ok := env("SIGNMAKER_RENDER_SCALE"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrap(errors.ErrCodeConfiguration, err, "SIGNMAKER_RENDER_SCALE")
		}
		c.Render.Scale = f
	}
	return nil
}

// Validate rejects unknown backends and out-of-range render settings.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New(errors.ErrCodeConfiguration, "database.path is required for sqlite")
		}
	case "mongo":
		if c.Database.URI == "" {
			return errors.New(errors.ErrCodeConfiguration, "database.uri is required for mongo")
		}
	default:
		return errors.New(errors.ErrCodeConfiguration, "unknown database driver %q (want sqlite or mongo)", c.Database.Driver)
	}

	switch c.Cache.Backend {
	case "file", "none":
	case "redis":
		if c.Cache.RedisURL == "" {
			return errors.New(errors.ErrCodeConfiguration, "cache.redis_url is required for the redis backend")
		}
	default:
		return errors.New(errors.ErrCodeConfiguration, "unknown cache backend %q (want file, redis or none)", c.Cache.Backend)
	}

	if t := c.Render.Timeout.Duration; t < 10*time.Second || t > 30*time.Second {
		return errors.New(errors.ErrCodeConfiguration, "render.timeout must be between 10s and 30s, got %s", t)
	}
	if c.Render.Scale <= 0 {
		return errors.New(errors.ErrCodeConfiguration, "render.scale must be positive, got %g", c.Render.Scale)
	}
	if c.Render.Concurrency <= 0 {
		return errors.New(errors.ErrCodeConfiguration, "render.concurrency must be positive, got %d", c.Render.Concurrency)
	}
	if c.Jobs.Workers <= 0 {
		return errors.New(errors.ErrCodeConfiguration, "jobs.workers must be positive, got %d", c.Jobs.Workers)
	}
	if c.Storage.PublicURL != "" {
		if err := errors.ValidateURL(c.Storage.PublicURL); err != nil {
			return errors.Wrap(errors.ErrCodeConfiguration, err, "storage.public_url")
		}
	}
	return nil
}

// StorageConfigured reports whether R2 credentials are present.
func (c *Config) StorageConfigured() bool {
	s := c.Storage
	return s.AccessKeyID != "" && s.SecretAccessKey != "" && (s.AccountID != "" || s.Endpoint != "")
}

// String summarizes the config without secrets.
func (c *Config) String() string {
	src := c.Path
	if src == "" {
		src = "defaults"
	}
	return fmt.Sprintf("config(%s) db=%s cache=%s storage=%v addr=%s", src, c.Database.Driver, c.Cache.Backend, c.StorageConfigured(), c.Server.Addr)
}
