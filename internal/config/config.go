package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// FileName is the optional settings file looked up in the config dir.
const FileName = "pilegen"

// DBConfig holds run-history storage settings. An empty path disables it.
type DBConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// ServerConfig holds dev server settings.
type ServerConfig struct {
	Port int `json:"port" mapstructure:"port"`
}

// AssetsConfig points at the texture library.
type AssetsConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// Settings are the runtime settings of the pilegen tools. Site parameters
// live in the project's site.yaml instead.
type Settings struct {
	LogLevel  string       `json:"logLevel" mapstructure:"logLevel"`
	OutputDir string       `json:"outputDir" mapstructure:"outputDir"`
	Seed      int64        `json:"seed" mapstructure:"seed"`
	SeedSet   bool         `json:"seedSet" mapstructure:"seedSet"`
	DB        DBConfig     `json:"db" mapstructure:"db"`
	Server    ServerConfig `json:"server" mapstructure:"server"`
	Assets    AssetsConfig `json:"assets" mapstructure:"assets"`
}

// BaseSeed returns the configured base seed, or nil when none was set.
func (s *Settings) BaseSeed() *int64 {
	if !s.SeedSet {
		return nil
	}
	seed := s.Seed
	return &seed
}

// New returns a viper instance with defaults, env binding and the optional
// settings file search path configured.
func New(configDir string) *viper.Viper {
	v := viper.New()

	v.SetDefault("logLevel", "info")
	v.SetDefault("outputDir", "./output")
	v.SetDefault("seed", 0)
	v.SetDefault("seedSet", false)

	v.SetDefault("db.path", "")

	v.SetDefault("server.port", 3000)

	v.SetDefault("assets.path", "")

	v.SetEnvPrefix("PILEGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	}
	return v
}

// Load reads settings from defaults, the optional pilegen.yaml in
// configDir and PILEGEN_* environment variables, in increasing priority.
func Load(configDir string) (*Settings, error) {
	return Decode(New(configDir))
}

// Decode reads the config file of v, if any, and decodes the settings.
func Decode(v *viper.Viper) (*Settings, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("error decoding settings: %w", err)
	}
	// An explicit seed in the file or environment counts as set.
	if _, ok := os.LookupEnv("PILEGEN_SEED"); ok || v.InConfig("seed") {
		s.SeedSet = true
	}
	return &s, nil
}
