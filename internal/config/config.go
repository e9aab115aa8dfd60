package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "flightgym.cfg.json"

// EnvConfig selects and parameterizes the environment.
type EnvConfig struct {
	ID string `json:"id" mapstructure:"id"`
	// Seed is nil unless set in the file or on the command line, so an
	// explicit 0 still reseeds.
	Seed            *uint64 `json:"seed" mapstructure:"seed"`
	MaxEpisodeSteps int     `json:"maxEpisodeSteps" mapstructure:"maxEpisodeSteps"`
	// Waypoints is a JSON array of [north, east, alt] triples. Empty keeps the built-in route.
	Waypoints string `json:"waypoints" mapstructure:"waypoints"`
	// Goal is a geodetic "lat,lon,alt" goal for environments that accept one.
	Goal string `json:"goal" mapstructure:"goal"`
}

// EpisodeConfig holds the episode rule overrides.
type EpisodeConfig struct {
	DownSample    int     `json:"downSample" mapstructure:"downSample"`
	GoalThreshold float64 `json:"goalThreshold" mapstructure:"goalThreshold"`
}

// RewardConfig holds reward shaping settings.
type RewardConfig struct {
	Mode        string  `json:"mode" mapstructure:"mode"`
	Coefficient float64 `json:"coefficient" mapstructure:"coefficient"`
}

// MemoryConfig holds in-memory storage backend settings
type MemoryConfig struct {
	OutputDir string `json:"outputDir" mapstructure:"outputDir"`
	// Format is one of json, json.gz, msgpack or msgpack.zst. Empty disables export.
	Format string `json:"format" mapstructure:"format"`
	// MaxEpisodes caps the finished episodes kept when export is disabled. 0 keeps all.
	MaxEpisodes int `json:"maxEpisodes" mapstructure:"maxEpisodes"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	// Path of the database file. Empty uses an in-memory database dumped to DumpPath on close.
	Path     string `json:"path" mapstructure:"path"`
	DumpPath string `json:"dumpPath" mapstructure:"dumpPath"`
}

// PostgresConfig holds PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"sslMode" mapstructure:"sslMode"`
}

// DSN returns the connection string for the postgres driver.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode)
}

// InfluxConfig holds InfluxDB settings
type InfluxConfig struct {
	Protocol   string `json:"protocol" mapstructure:"protocol"`
	Host       string `json:"host" mapstructure:"host"`
	Port       string `json:"port" mapstructure:"port"`
	Token      string `json:"token" mapstructure:"token"`
	Org        string `json:"org" mapstructure:"org"`
	Bucket     string `json:"bucket" mapstructure:"bucket"`
	BackupPath string `json:"backupPath" mapstructure:"backupPath"`
}

// URL returns the server URL.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// StorageConfig holds storage backend configuration
type StorageConfig struct {
	Type      string         `json:"type" mapstructure:"type"`
	BatchSize int            `json:"batchSize" mapstructure:"batchSize"`
	Memory    MemoryConfig   `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Postgres  PostgresConfig `json:"postgres" mapstructure:"postgres"`
	Influx    InfluxConfig   `json:"influx" mapstructure:"influx"`
}

// SimConfig holds the simulator connection settings.
type SimConfig struct {
	Address string        `json:"address" mapstructure:"address"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// RolloutConfig holds rollout driver settings.
type RolloutConfig struct {
	Episodes   int  `json:"episodes" mapstructure:"episodes"`
	Render     bool `json:"render" mapstructure:"render"`
	BufferSize int  `json:"bufferSize" mapstructure:"bufferSize"`
}

// GraylogConfig holds the GELF sink settings.
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level      string        `json:"logLevel" mapstructure:"logLevel"`
	Dir        string        `json:"logsDir" mapstructure:"logsDir"`
	MaxSizeMB  int           `json:"maxSizeMB" mapstructure:"maxSizeMB"`
	MaxBackups int           `json:"maxBackups" mapstructure:"maxBackups"`
	Graylog    GraylogConfig `json:"graylog" mapstructure:"graylog"`
}

// SetDefaults registers the default values.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")
	viper.SetDefault("log.maxSizeMB", 32)
	viper.SetDefault("log.maxBackups", 3)

	viper.SetDefault("env.id", "JSBSimEnvPoints-v0")
	viper.SetDefault("env.maxEpisodeSteps", 1200)
	viper.SetDefault("env.waypoints", "")
	viper.SetDefault("env.goal", "")

	viper.SetDefault("episode.downSample", 4)
	viper.SetDefault("episode.goalThreshold", 100)

	viper.SetDefault("reward.mode", "penalty")
	viper.SetDefault("reward.coefficient", 0.01)

	viper.SetDefault("sim.address", "localhost:1137")
	viper.SetDefault("sim.timeout", "5s")

	viper.SetDefault("rollout.episodes", 1)
	viper.SetDefault("rollout.render", false)
	viper.SetDefault("rollout.bufferSize", 1024)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.batchSize", 500)
	viper.SetDefault("storage.memory.outputDir", "./rollouts")
	viper.SetDefault("storage.memory.format", "json.gz")
	viper.SetDefault("storage.memory.maxEpisodes", 100)
	viper.SetDefault("storage.sqlite.path", "")
	viper.SetDefault("storage.sqlite.dumpPath", "./rollouts/flightgym.db")
	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", "5432")
	viper.SetDefault("storage.postgres.username", "postgres")
	viper.SetDefault("storage.postgres.password", "postgres")
	viper.SetDefault("storage.postgres.database", "flightgym")
	viper.SetDefault("storage.postgres.sslMode", "disable")
	viper.SetDefault("storage.influx.protocol", "http")
	viper.SetDefault("storage.influx.host", "localhost")
	viper.SetDefault("storage.influx.port", "8086")
	viper.SetDefault("storage.influx.token", "")
	viper.SetDefault("storage.influx.org", "flightgym")
	viper.SetDefault("storage.influx.bucket", "rollouts")
	viper.SetDefault("storage.influx.backupPath", "./rollouts/influx_backup.lp.gz")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// FlagKeys maps command line flag names to the config keys they override.
var FlagKeys = map[string]string{
	"env":      "env.id",
	"seed":     "env.seed",
	"goal":     "env.goal",
	"episodes": "rollout.episodes",
	"render":   "rollout.render",
	"sim":      "sim.address",
	"storage":  "storage.type",
}

// BindFlags makes every flag in FlagKeys that is defined on fs override its config key.
func BindFlags(fs *pflag.FlagSet) error {
	for name, key := range FlagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}
	return nil
}

// GetEnvConfig returns the environment configuration.
func GetEnvConfig() EnvConfig {
	cfg := EnvConfig{
		ID:              viper.GetString("env.id"),
		MaxEpisodeSteps: viper.GetInt("env.maxEpisodeSteps"),
		Waypoints:       viper.GetString("env.waypoints"),
		Goal:            viper.GetString("env.goal"),
	}
	// env.seed has no default, so IsSet only sees the file and changed flags
	if viper.IsSet("env.seed") {
		seed := viper.GetUint64("env.seed")
		cfg.Seed = &seed
	}
	return cfg
}

// GetEpisodeConfig returns the episode rule overrides.
func GetEpisodeConfig() EpisodeConfig {
	return EpisodeConfig{
		DownSample:    viper.GetInt("episode.downSample"),
		GoalThreshold: viper.GetFloat64("episode.goalThreshold"),
	}
}

// GetRewardConfig returns the reward shaping configuration.
func GetRewardConfig() RewardConfig {
	return RewardConfig{
		Mode:        viper.GetString("reward.mode"),
		Coefficient: viper.GetFloat64("reward.coefficient"),
	}
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:      viper.GetString("storage.type"),
		BatchSize: viper.GetInt("storage.batchSize"),
		Memory: MemoryConfig{
			OutputDir:   viper.GetString("storage.memory.outputDir"),
			Format:      viper.GetString("storage.memory.format"),
			MaxEpisodes: viper.GetInt("storage.memory.maxEpisodes"),
		},
		SQLite: SQLiteConfig{
			Path:     viper.GetString("storage.sqlite.path"),
			DumpPath: viper.GetString("storage.sqlite.dumpPath"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("storage.postgres.host"),
			Port:     viper.GetString("storage.postgres.port"),
			Username: viper.GetString("storage.postgres.username"),
			Password: viper.GetString("storage.postgres.password"),
			Database: viper.GetString("storage.postgres.database"),
			SSLMode:  viper.GetString("storage.postgres.sslMode"),
		},
		Influx: InfluxConfig{
			Protocol:   viper.GetString("storage.influx.protocol"),
			Host:       viper.GetString("storage.influx.host"),
			Port:       viper.GetString("storage.influx.port"),
			Token:      viper.GetString("storage.influx.token"),
			Org:        viper.GetString("storage.influx.org"),
			Bucket:     viper.GetString("storage.influx.bucket"),
			BackupPath: viper.GetString("storage.influx.backupPath"),
		},
	}
}

// GetSimConfig returns the simulator connection configuration.
func GetSimConfig() SimConfig {
	return SimConfig{
		Address: viper.GetString("sim.address"),
		Timeout: viper.GetDuration("sim.timeout"),
	}
}

// GetRolloutConfig returns the rollout driver configuration.
func GetRolloutConfig() RolloutConfig {
	return RolloutConfig{
		Episodes:   viper.GetInt("rollout.episodes"),
		Render:     viper.GetBool("rollout.render"),
		BufferSize: viper.GetInt("rollout.bufferSize"),
	}
}

// GetLoggingConfig returns the logging configuration.
func GetLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:      viper.GetString("logLevel"),
		Dir:        viper.GetString("logsDir"),
		MaxSizeMB:  viper.GetInt("log.maxSizeMB"),
		MaxBackups: viper.GetInt("log.maxBackups"),
		Graylog: GraylogConfig{
			Enabled: viper.GetBool("graylog.enabled"),
			Address: viper.GetString("graylog.address"),
		},
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
