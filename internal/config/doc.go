// Package config provides configuration management for the MiniMessenger
// daemon.
//
// The package uses a Provider interface to abstract configuration loading, with the
// primary implementation being filesystem-based configuration via YAML files.
//
// # Configuration Structure
//
// Configuration is structured as follows:
//
//	socket:
//	  path: /tmp/minimessengerd.socket  # Unix domain socket path
//	  mode: 0o600                       # socket file permissions
//	  startup_timeout: 5s               # how long the CLI waits for the daemon
//	messenger:
//	  data_dir: ~/.minimessenger        # where the message file lives
//	  file: messages.yml                # message file name
//	  prefix_path: prefix               # path of the prefix template
//	  messages_path: messages           # path of the messages sub-table
//	  root: ""                          # optional sub-table for typed lookups
//	  materials: []                     # optional exact set of material names
//	  watch: true                       # reload when the file changes
//	  debounce: 250ms                   # quiet period before reloading
//	  reload_interval: 0s               # periodic reload, 0 disables
//	hub:
//	  inbox_size: 100                   # deliveries kept per recipient
//	  console: true                     # echo broadcasts to the log
//
// Keys omitted from the file keep their default values.
//
// # Basic Usage
//
// Load configuration using the default path (~/.minimessenger/config.yaml):
//
//	provider := config.New("")
//	cfg, err := provider.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Configuration Validation
//
// The package performs validation of loaded configuration:
//   - Socket path, data dir, file name and both document paths must not be empty
//   - The file must be a bare name inside the data dir
//   - Debounce must be at least 10ms when watching
//   - Reload interval must be 0 or at least 1 second
//   - Inbox size must be at least 1
//
// # Error Handling
//
// The package defines several error types:
//   - ErrInvalidConfig: Configuration validation failed
//   - ErrNoConfig: Configuration file not found (returns defaults)
package config
