package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type LoggingCfg struct {
	Level  string `mapstructure:"level"`
	RunLog string `mapstructure:"run_log"`
}

// StoreCfg selects and configures the alert store backend.
// URI is a Mongo connection string, a SQL DSN, or a SQLite path depending on Driver.
// Path is the SQLite file used when URI is empty.
type StoreCfg struct {
	Driver      string        `mapstructure:"driver"`
	URI         string        `mapstructure:"uri"`
	Path        string        `mapstructure:"path"`
	Database    string        `mapstructure:"database"`
	Collection  string        `mapstructure:"collection"`
	MaxPoolSize uint64        `mapstructure:"max_pool_size"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type S3Cfg struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

type SourceCfg struct {
	Kind string `mapstructure:"kind"`
	Dir  string `mapstructure:"dir"`
	S3   S3Cfg  `mapstructure:"s3"`
}

type DetectionCfg struct {
	Workers int `mapstructure:"workers"`
}

type ServerCfg struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ExportCfg controls sealed alert exports.
type ExportCfg struct {
	StateFile string `mapstructure:"state_file"`
}

type Config struct {
	Version   string       `mapstructure:"version"`
	Store     StoreCfg     `mapstructure:"store"`
	Source    SourceCfg    `mapstructure:"source"`
	Detection DetectionCfg `mapstructure:"detection"`
	Server    ServerCfg    `mapstructure:"server"`
	Export    ExportCfg    `mapstructure:"export"`
	Logging   LoggingCfg   `mapstructure:"logging"`
}

var cfg *Config

// envBindings maps config keys to the environment variables used by existing
// CloudTrail deployments. TRAILGUARD_* variables are bound for every key as well.
var envBindings = map[string]string{
	"store.uri":                   "MONGO_URI",
	"source.s3.bucket":            "CLOUDTRAIL_S3_BUCKET",
	"source.s3.prefix":            "CLOUDTRAIL_S3_PREFIX",
	"source.s3.region":            "AWS_DEFAULT_REGION",
	"source.s3.access_key_id":     "AWS_ACCESS_KEY_ID",
	"source.s3.secret_access_key": "AWS_SECRET_ACCESS_KEY",
	"source.s3.session_token":     "AWS_SESSION_TOKEN",
}

// Load populates global config from a viper instance
func Load(v *viper.Viper) error {
	v.SetDefault("version", "0.1")
	v.SetDefault("store.path", "trailguard.db")
	v.SetDefault("store.database", "cloudtrail_db")
	v.SetDefault("store.collection", "alerts")
	v.SetDefault("store.max_pool_size", 50)
	v.SetDefault("store.timeout", "10s")
	v.SetDefault("source.kind", "dir")
	v.SetDefault("source.dir", "sample_logs")
	v.SetDefault("source.s3.region", "us-east-1")
	v.SetDefault("detection.workers", 1)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("logging.level", "info")

	v.SetEnvPrefix("TRAILGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		// the prefixed variable wins over the legacy name
		if err := v.BindEnv(key, "TRAILGUARD_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	c.Store.Driver = resolveDriver(c.Store)
	cfg = &c
	return nil
}

// resolveDriver picks a persistent backend when store.driver is unset: Mongo
// for a mongodb:// URI (the legacy MONGO_URI deployment), otherwise SQLite.
func resolveDriver(sc StoreCfg) string {
	if sc.Driver != "" {
		return sc.Driver
	}
	if strings.HasPrefix(sc.URI, "mongodb://") || strings.HasPrefix(sc.URI, "mongodb+srv://") {
		return "mongodb"
	}
	return "sqlite"
}

func Get() *Config {
	if cfg == nil {
		cfg = &Config{}
	}
	return cfg
}
