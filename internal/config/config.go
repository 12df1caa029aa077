// Package config provides configuration loading and validation for the
// MiniMessenger daemon. It handles reading configuration from files, providing
// defaults, and ensuring all required settings are properly set.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Krakenied/MiniMessenger/internal/filesys"
)

var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrNoConfig is returned when the configuration file is not found.
	ErrNoConfig = errors.New("configuration file not found")
)

const (
	// DefaultSocketPath is the default path for the Unix socket.
	DefaultSocketPath = "/tmp/minimessengerd.socket"
	// DefaultSocketMode restricts the socket to its owner.
	DefaultSocketMode os.FileMode = 0o600
	// DefaultStartupTimeout is how long the CLI waits for a starting daemon.
	DefaultStartupTimeout = 5 * time.Second
	// DefaultConfigPath is the default path for the configuration file,
	// relative to the user's home directory.
	DefaultConfigPath = ".minimessenger/config.yaml"
	// DefaultDataDir is where the message file lives unless configured.
	DefaultDataDir = "~/.minimessenger"
	// DefaultMessagesFile is the message file name inside the data dir.
	DefaultMessagesFile = "messages.yml"
	// DefaultPrefixPath is the document path of the prefix template.
	DefaultPrefixPath = "prefix"
	// DefaultMessagesPath is the document path of the messages sub-table.
	DefaultMessagesPath = "messages"
	// DefaultDebounce is how long the watcher waits for writes to settle.
	DefaultDebounce = 250 * time.Millisecond
	// DefaultInboxSize bounds the deliveries kept per recipient.
	DefaultInboxSize = 100
)

// Config holds the application configuration.
type Config struct {
	Socket    SocketConfig    `yaml:"socket"`
	Messenger MessengerConfig `yaml:"messenger"`
	Hub       HubConfig       `yaml:"hub"`
}

// SocketConfig holds socket-related configuration.
type SocketConfig struct {
	Path string `yaml:"path"`
	// Mode is the permission of the socket file.
	Mode os.FileMode `yaml:"mode"`
	// StartupTimeout is how long the CLI waits for a starting daemon.
	StartupTimeout time.Duration `yaml:"startup_timeout"`
}

// MessengerConfig locates the message file and controls how it is reloaded.
type MessengerConfig struct {
	DataDir      string `yaml:"data_dir"`
	File         string `yaml:"file"`
	PrefixPath   string `yaml:"prefix_path"`
	MessagesPath string `yaml:"messages_path"`
	// Root, when set, makes typed lookups relative to that sub-table.
	Root string `yaml:"root"`
	// Materials, when set, is the exact set of accepted material names.
	Materials      []string      `yaml:"materials"`
	Watch          bool          `yaml:"watch"`
	Debounce       time.Duration `yaml:"debounce"`
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

// HubConfig holds recipient hub configuration.
type HubConfig struct {
	InboxSize int  `yaml:"inbox_size"`
	Console   bool `yaml:"console"`
}

// Provider defines the interface for loading configuration.
type Provider interface {
	Load() (*Config, error)
}

// FSProvider implements Provider using the local filesystem.
type FSProvider struct {
	fs   filesys.ReadWriteFS
	path string
}

// Verify FSProvider implements Provider interface.
var _ Provider = (*FSProvider)(nil)

// New creates a new configuration provider. An empty path selects
// DefaultConfigPath under the user's home directory; if the home directory
// cannot be determined, it falls back to the current directory.
func New(path string) Provider {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not determine home directory: %v\n", err)
			home = ""
		}
		path = filepath.Join(home, DefaultConfigPath)
	}
	return NewWithPath(filesys.OS(), path)
}

// NewWithPath creates a new provider with a specific config path.
// It allows specifying both the filesystem implementation and the path to use.
func NewWithPath(fs filesys.ReadWriteFS, path string) Provider {
	return &FSProvider{
		fs:   fs,
		path: path,
	}
}

// Default returns a default configuration with preset values.
// This is used when no configuration file exists, and as the base a file is
// decoded over, so omitted keys keep their defaults.
func Default() *Config {
	return &Config{
		Socket: SocketConfig{
			Path:           DefaultSocketPath,
			Mode:           DefaultSocketMode,
			StartupTimeout: DefaultStartupTimeout,
		},
		Messenger: MessengerConfig{
			DataDir:      DefaultDataDir,
			File:         DefaultMessagesFile,
			PrefixPath:   DefaultPrefixPath,
			MessagesPath: DefaultMessagesPath,
			Watch:        true,
			Debounce:     DefaultDebounce,
		},
		Hub: HubConfig{
			InboxSize: DefaultInboxSize,
			Console:   true,
		},
	}
}

// Load loads the configuration from the specified path.
func (p *FSProvider) Load() (*Config, error) {
	_ = p.ensureConfigDir()

	cfg, err := p.loadAndParse()
	if err != nil {
		if errors.Is(err, ErrNoConfig) {
			return Default(), nil
		}
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return cfg, nil
}

// Validate checks the configuration to ensure all required fields are set.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Socket.Path) == "" {
		return errors.New("socket path cannot be empty")
	}
	if c.Socket.Mode&^os.ModePerm != 0 {
		return errors.New("socket mode must be a permission, like 0600")
	}
	m := c.Messenger
	if strings.TrimSpace(m.DataDir) == "" {
		return errors.New("data dir cannot be empty")
	}
	if strings.TrimSpace(m.File) == "" {
		return errors.New("messages file cannot be empty")
	}
	if filepath.Base(m.File) != m.File {
		return errors.New("messages file must be a file name, not a path")
	}
	if strings.TrimSpace(m.PrefixPath) == "" {
		return errors.New("prefix path cannot be empty")
	}
	if strings.TrimSpace(m.MessagesPath) == "" {
		return errors.New("messages path cannot be empty")
	}
	if m.Watch && m.Debounce < 10*time.Millisecond {
		return errors.New("debounce must be at least 10ms")
	}
	if m.ReloadInterval != 0 && m.ReloadInterval < time.Second {
		return errors.New("reload interval must be 0 or at least 1 second")
	}
	if c.Hub.InboxSize < 1 {
		return errors.New("inbox size must be at least 1")
	}
	return nil
}

// MessagesFile returns the absolute location of the message file, with a
// leading "~" expanded to the user's home directory.
func (c *Config) MessagesFile() (string, error) {
	dir, err := expandHome(c.Messenger.DataDir)
	if err != nil {
		return "", err
	}
	return filepath.Abs(filepath.Join(dir, c.Messenger.File))
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expanding %q: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func (p *FSProvider) ensureConfigDir() error {
	dir := filepath.Dir(p.path)
	if _, err := p.fs.Stat(dir); os.IsNotExist(err) {
		if err := p.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	return nil
}

func (p *FSProvider) loadAndParse() (*Config, error) {
	f, err := p.fs.Open(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoConfig
		}
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	cfg := Default()
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decoding config file: %w", err)
	}

	return cfg, nil
}
