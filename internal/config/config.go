// Package config provides Viper-based configuration loading for the battle server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// LogDice logs every random draw at debug level.
	LogDice bool `mapstructure:"log_dice"`
	// LogBattles writes every battle log record as a structured entry.
	LogBattles bool `mapstructure:"log_battles"`
}

// BattleConfig holds the match tunables.
type BattleConfig struct {
	InitialHP              int           `mapstructure:"initial_hp"`
	BossHP                 int           `mapstructure:"boss_hp"`
	TurnDelay              time.Duration `mapstructure:"turn_delay"`
	RoundEndDelay          time.Duration `mapstructure:"round_end_delay"`
	FallbackOnImageFailure bool          `mapstructure:"fallback_on_image_failure"`
	// Seed selects a deterministic source when non-zero; zero uses crypto/rand.
	Seed uint64 `mapstructure:"seed"`
}

// AnthropicConfig holds Claude API settings.
type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int64  `mapstructure:"max_tokens"`
	BaseURL   string `mapstructure:"base_url"`
}

// GenerationConfig selects and configures the profile provider.
type GenerationConfig struct {
	// Provider is "anthropic" or "roster".
	Provider string `mapstructure:"provider"`
	// RosterDir holds the YAML roster used by the roster provider.
	RosterDir string `mapstructure:"roster_dir"`
	// Timeout bounds each acquisition.
	Timeout   time.Duration   `mapstructure:"timeout"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
}

// GalleryConfig selects the gallery store.
type GalleryConfig struct {
	// Driver is "memory", "sqlite" or "postgres".
	Driver     string `mapstructure:"driver"`
	Capacity   int    `mapstructure:"capacity"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// GameServerConfig holds gRPC listener settings.
type GameServerConfig struct {
	GRPCHost string `mapstructure:"grpc_host"`
	GRPCPort int    `mapstructure:"grpc_port"`
}

// Addr returns the "host:port" gRPC address.
func (g GameServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.GRPCHost, g.GRPCPort)
}

// WebConfig holds HTTP listener settings.
type WebConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// MaxUploadBytes caps uploaded image size.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

// Addr returns the "host:port" HTTP address.
func (w WebConfig) Addr() string {
	return fmt.Sprintf("%s:%d", w.Host, w.Port)
}

// TelnetConfig holds the arena's Telnet listener settings.
type TelnetConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// ReadTimeout bounds the wait for each command line; zero disables it.
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the "host:port" Telnet address.
func (t TelnetConfig) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// ScriptingConfig configures the scripted opponent.
type ScriptingConfig struct {
	// OpponentScript is a Lua file defining choose_move; empty uses the built-in strategy.
	OpponentScript   string `mapstructure:"opponent_script"`
	InstructionLimit int    `mapstructure:"instruction_limit"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Battle     BattleConfig     `mapstructure:"battle"`
	Generation GenerationConfig `mapstructure:"generation"`
	Gallery    GalleryConfig    `mapstructure:"gallery"`
	Database   DatabaseConfig   `mapstructure:"database"`
	GameServer GameServerConfig `mapstructure:"gameserver"`
	Web        WebConfig        `mapstructure:"web"`
	Telnet     TelnetConfig     `mapstructure:"telnet"`
	Scripting  ScriptingConfig  `mapstructure:"scripting"`
}

// Validate checks all configuration invariants. Database settings are only
// checked when the gallery uses PostgreSQL.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	for _, err := range []error{
		validateLogging(c.Logging),
		validateBattle(c.Battle),
		validateGeneration(c.Generation),
		validateGallery(c.Gallery),
		validateGameServer(c.GameServer),
		validateWeb(c.Web),
		validateTelnet(c.Telnet),
		validateScripting(c.Scripting),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if c.Gallery.Driver == "postgres" {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func joinErrs(errs []string) error {
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validPort(p int) bool { return p >= 1 && p <= 65535 }

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateBattle(b BattleConfig) error {
	var errs []string
	if b.InitialHP < 1 {
		errs = append(errs, fmt.Sprintf("battle.initial_hp must be >= 1, got %d", b.InitialHP))
	}
	if b.BossHP < 1 {
		errs = append(errs, fmt.Sprintf("battle.boss_hp must be >= 1, got %d", b.BossHP))
	}
	if b.TurnDelay < 0 {
		errs = append(errs, "battle.turn_delay must not be negative")
	}
	if b.RoundEndDelay < 0 {
		errs = append(errs, "battle.round_end_delay must not be negative")
	}
	return joinErrs(errs)
}

func validateGeneration(g GenerationConfig) error {
	var errs []string
	switch g.Provider {
	case "anthropic":
		if g.Anthropic.APIKey == "" {
			errs = append(errs, "generation.anthropic.api_key must not be empty")
		}
		if g.Anthropic.MaxTokens < 0 {
			errs = append(errs, fmt.Sprintf("generation.anthropic.max_tokens must be >= 0, got %d", g.Anthropic.MaxTokens))
		}
	case "roster":
		if g.RosterDir == "" {
			errs = append(errs, "generation.roster_dir must not be empty")
		}
	default:
		errs = append(errs, fmt.Sprintf("generation.provider must be one of [anthropic, roster], got %q", g.Provider))
	}
	if g.Timeout < 0 {
		errs = append(errs, "generation.timeout must not be negative")
	}
	return joinErrs(errs)
}

func validateGallery(g GalleryConfig) error {
	var errs []string
	validDrivers := map[string]bool{"memory": true, "sqlite": true, "postgres": true}
	if !validDrivers[g.Driver] {
		errs = append(errs, fmt.Sprintf("gallery.driver must be one of [memory, sqlite, postgres], got %q", g.Driver))
	}
	if g.Capacity < 1 {
		errs = append(errs, fmt.Sprintf("gallery.capacity must be >= 1, got %d", g.Capacity))
	}
	if g.Driver == "sqlite" && g.SQLitePath == "" {
		errs = append(errs, "gallery.sqlite_path must not be empty")
	}
	return joinErrs(errs)
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if !validPort(d.Port) {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	return joinErrs(errs)
}

func validateGameServer(g GameServerConfig) error {
	var errs []string
	if g.GRPCHost == "" {
		errs = append(errs, "gameserver.grpc_host must not be empty")
	}
	if !validPort(g.GRPCPort) {
		errs = append(errs, fmt.Sprintf("gameserver.grpc_port must be 1-65535, got %d", g.GRPCPort))
	}
	return joinErrs(errs)
}

func validateWeb(w WebConfig) error {
	var errs []string
	if !validPort(w.Port) {
		errs = append(errs, fmt.Sprintf("web.port must be 1-65535, got %d", w.Port))
	}
	if w.MaxUploadBytes < 1 {
		errs = append(errs, fmt.Sprintf("web.max_upload_bytes must be >= 1, got %d", w.MaxUploadBytes))
	}
	return joinErrs(errs)
}

func validateTelnet(t TelnetConfig) error {
	var errs []string
	if !validPort(t.Port) {
		errs = append(errs, fmt.Sprintf("telnet.port must be 1-65535, got %d", t.Port))
	}
	if t.ReadTimeout < 0 {
		errs = append(errs, "telnet.read_timeout must not be negative")
	}
	if t.WriteTimeout < 0 {
		errs = append(errs, "telnet.write_timeout must not be negative")
	}
	return joinErrs(errs)
}

func validateScripting(s ScriptingConfig) error {
	if s.InstructionLimit < 0 {
		return fmt.Errorf("scripting.instruction_limit must be >= 0, got %d", s.InstructionLimit)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with BEAST_ prefix
	v.SetEnvPrefix("BEAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.log_dice", false)
	v.SetDefault("logging.log_battles", true)

	v.SetDefault("battle.initial_hp", 300)
	v.SetDefault("battle.boss_hp", 500)
	v.SetDefault("battle.turn_delay", "1200ms")
	v.SetDefault("battle.round_end_delay", "2s")
	v.SetDefault("battle.fallback_on_image_failure", true)
	v.SetDefault("battle.seed", 0)

	v.SetDefault("generation.provider", "roster")
	v.SetDefault("generation.roster_dir", "content/roster")
	v.SetDefault("generation.timeout", "60s")
	v.SetDefault("generation.anthropic.api_key", "")
	v.SetDefault("generation.anthropic.model", "claude-sonnet-4-5")
	v.SetDefault("generation.anthropic.max_tokens", 1024)
	v.SetDefault("generation.anthropic.base_url", "")

	v.SetDefault("gallery.driver", "memory")
	v.SetDefault("gallery.capacity", 10)
	v.SetDefault("gallery.sqlite_path", "data/gallery.db")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "beast")
	v.SetDefault("database.password", "beast")
	v.SetDefault("database.name", "beastbattle")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("gameserver.grpc_host", "127.0.0.1")
	v.SetDefault("gameserver.grpc_port", 50051)

	v.SetDefault("web.host", "0.0.0.0")
	v.SetDefault("web.port", 8080)
	v.SetDefault("web.max_upload_bytes", 8<<20)

	v.SetDefault("telnet.host", "0.0.0.0")
	v.SetDefault("telnet.port", 4000)
	v.SetDefault("telnet.read_timeout", "10m")
	v.SetDefault("telnet.write_timeout", "10s")

	v.SetDefault("scripting.opponent_script", "")
	v.SetDefault("scripting.instruction_limit", 100000)
}
