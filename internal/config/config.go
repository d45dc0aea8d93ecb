// Package config loads classgraph settings from classgraph.toml,
// CLASSGRAPH_* environment variables and defaults, in increasing order of
// precedence: defaults < file < environment.
package config

import (
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/viper"

	"github.com/phobologic/classgraph/internal/discover"
	"github.com/phobologic/classgraph/internal/errors"
	"github.com/phobologic/classgraph/internal/framework"
	"github.com/phobologic/classgraph/internal/lang"
)

// FileName is the project config file looked up in the working directory.
const FileName = "classgraph.toml"

// Config is the full configuration.
type Config struct {
	Classes   ClassesConfig   `mapstructure:"classes"`
	Metadata  MetadataConfig  `mapstructure:"metadata"`
	Framework FrameworkConfig `mapstructure:"framework"`
	Server    ServerConfig    `mapstructure:"server"`
	Editor    EditorConfig    `mapstructure:"editor"`
	Log       LogConfig       `mapstructure:"log"`
	Ignore    IgnoreConfig    `mapstructure:"ignore"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

// ClassesConfig locates the class-source directory.
type ClassesConfig struct {
	Dir   string `mapstructure:"dir"`
	Ext   string `mapstructure:"ext"`
	Entry string `mapstructure:"entry"`
}

// MetadataConfig locates the canvas position side file.
type MetadataConfig struct {
	Path string `mapstructure:"path"`
}

// FrameworkConfig names the runtime module class files import from.
type FrameworkConfig struct {
	Module string `mapstructure:"module"`
}

// ServerConfig configures the editor socket.
type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// IntentRate paces each editor to this many intents per second; zero
	// means unpaced.
	IntentRate  float64 `mapstructure:"intent_rate"`
	IntentBurst int     `mapstructure:"intent_burst"`
}

// EditorConfig is the command class-open runs. Command may carry arguments
// in shell syntax ("code --wait"); Args are appended after them.
type EditorConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Level string `mapstructure:"level"`
}

// IgnoreConfig adds gitignore-style patterns for files that are not classes.
type IgnoreConfig struct {
	Patterns []string `mapstructure:"patterns"`
}

// CacheConfig bounds the watcher's analysis cache.
type CacheConfig struct {
	Size int `mapstructure:"size"`
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("classes.dir", "src/classes")
	v.SetDefault("classes.ext", ".ts")
	v.SetDefault("classes.entry", framework.EntryBase)

	v.SetDefault("metadata.path", ".classgraph/metadata.json")

	v.SetDefault("framework.module", framework.DefaultModule)

	v.SetDefault("server.addr", "127.0.0.1:5051")
	v.SetDefault("server.allowed_origins", []string{"http://localhost", "https://localhost", "http://127.0.0.1"})
	v.SetDefault("server.intent_rate", 0.0)
	v.SetDefault("server.intent_burst", 16)

	v.SetDefault("editor.command", "code")
	v.SetDefault("editor.args", []string{})

	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")

	v.SetDefault("ignore.patterns", []string{})

	v.SetDefault("cache.size", 512)
}

// New returns a viper instance with defaults and environment binding. When
// path is empty, classgraph.toml is looked up in dir.
func New(path, dir string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("CLASSGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.AddConfigPath(dir)
	}
	return v
}

// Load reads the configuration for the project in dir. path overrides the
// config file location; a missing default file is not an error. Relative
// paths in the result are resolved against dir.
func Load(path, dir string) (*Config, error) {
	v := New(path, dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrapf(err, "read config")
		}
	}
	cfg, err := LoadWithViper(v)
	if err != nil {
		return nil, err
	}
	cfg.Resolve(dir)
	return cfg, nil
}

// LoadWithViper unmarshals and validates the configuration held by v.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later and less clearly.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Classes.Ext, ".") || lang.ForExtension(c.Classes.Ext) == "" {
		return errors.Newf("classes.ext: unsupported extension %q", c.Classes.Ext)
	}
	if !discover.ValidClassID(c.Classes.Entry) {
		return errors.Newf("classes.entry: %q is not a valid file base name", c.Classes.Entry)
	}
	if c.Classes.Dir == "" {
		return errors.New("classes.dir must not be empty")
	}
	if c.Metadata.Path == "" {
		return errors.New("metadata.path must not be empty")
	}
	if c.Framework.Module == "" {
		return errors.New("framework.module must not be empty")
	}
	if c.Server.IntentRate < 0 {
		return errors.Newf("server.intent_rate must not be negative, got %v", c.Server.IntentRate)
	}
	if _, _, err := c.EditorCommand(); err != nil {
		return err
	}
	if c.Cache.Size < 1 {
		return errors.Newf("cache.size must be positive, got %d", c.Cache.Size)
	}
	return nil
}

// Resolve makes the directory and metadata paths absolute relative to dir.
func (c *Config) Resolve(dir string) {
	if !filepath.IsAbs(c.Classes.Dir) {
		c.Classes.Dir = filepath.Join(dir, c.Classes.Dir)
	}
	if !filepath.IsAbs(c.Metadata.Path) {
		c.Metadata.Path = filepath.Join(dir, c.Metadata.Path)
	}
}

// EditorCommand splits editor.command with shell quoting rules and appends
// editor.args.
func (c *Config) EditorCommand() (string, []string, error) {
	words, err := shellquote.Split(c.Editor.Command)
	if err != nil {
		return "", nil, errors.Wrapf(err, "editor.command %q", c.Editor.Command)
	}
	if len(words) == 0 {
		return "", nil, nil
	}
	return words[0], append(words[1:], c.Editor.Args...), nil
}

// DiscoverOptions returns the class file selection rules.
func (c *Config) DiscoverOptions() discover.Options {
	return discover.Options{
		Extensions: []string{c.Classes.Ext},
		Entry:      c.Classes.Entry,
		Ignore:     c.Ignore.Patterns,
	}
}
