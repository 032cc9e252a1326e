package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the fully resolved runtime configuration for fleetpush.
type Config struct {
	Language string         `mapstructure:"language" yaml:"language"`
	Debug    bool           `mapstructure:"debug" yaml:"debug"`
	Cluster  ClusterConfig  `mapstructure:"cluster" yaml:"cluster"`
	SSH      SSHConfig      `mapstructure:"ssh" yaml:"ssh"`
	Audit    AuditConfig    `mapstructure:"audit" yaml:"audit"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
}

// ClusterConfig locates the roster of nodes.
type ClusterConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// SSHConfig carries everything needed to reach a node.
type SSHConfig struct {
	User            string `mapstructure:"user" yaml:"user"`
	IdentityFile    string `mapstructure:"identity_file" yaml:"identity_file"`
	Port            int    `mapstructure:"port" yaml:"port"`
	HostKeyPolicy   string `mapstructure:"host_key_policy" yaml:"host_key_policy"`
	ConnectTimeout  string `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	CommandTimeout  string `mapstructure:"command_timeout" yaml:"command_timeout"`
	TransferTimeout string `mapstructure:"transfer_timeout" yaml:"transfer_timeout"`
}

// AuditConfig locates the append-only deployment log.
type AuditConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// DatabaseConfig selects the history store backend.
type DatabaseConfig struct {
	Type string `mapstructure:"type" yaml:"type"`
	Dsn  string `mapstructure:"dsn" yaml:"dsn"`
}

// Defaults returns the built-in configuration values. Flags, environment
// variables and config files override them in the usual viper order.
func Defaults() map[string]any {
	return map[string]any{
		"language":             "en",
		"debug":                false,
		"cluster.file":         "./cluster.txt",
		"ssh.user":             "deploy",
		"ssh.identity_file":    "./deploy_key",
		"ssh.port":             22,
		"ssh.host_key_policy":  "accept-any",
		"ssh.connect_timeout":  "10s",
		"ssh.command_timeout":  "30s",
		"ssh.transfer_timeout": "2m",
		"audit.file":           "./deploy.log",
		"database.type":        "sqlite",
		"database.dsn":         "./fleetpush.db",
	}
}

// GetConfigPath returns the full path for the configuration file.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		// System-wide configuration paths
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "Fleetpush")
		default: // Linux, macOS, etc.
			configDir = "/etc/fleetpush"
		}
	} else {
		// User-specific configuration paths
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "fleetpush")
	}

	return filepath.Join(configDir, "fleetpush.yaml"), nil
}

// LoadConfig resolves the configuration from defaults, config files, the
// environment and the command's flags, then unmarshals it into T.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, explicitConfigFile *string) (T, error) {
	var c T
	v := viper.New()

	// 1. Set defaults
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// 2. Set up file search paths
	v.SetConfigName("fleetpush")
	v.SetConfigType("yaml")

	// 3. An explicit config file (--config flag) wins over the search path.
	if explicitConfigFile != nil && *explicitConfigFile != "" {
		v.SetConfigFile(*explicitConfigFile)
	}

	// 4. Add standard config locations
	if userConfigPath, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".") // Look for fleetpush.yaml in current dir

	// 5. Read in the primary config file.
	if err := v.ReadInConfig(); err != nil {
		// It's okay if the file is not found, but other errors are fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, err
		}
	}

	// 6. Read from environment variables
	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	v.SetEnvPrefix("fleetpush")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 7. Bind the command's flags; set flags override file and env values.
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return c, err
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}

	return c, nil
}

// WriteConfigTo marshals c and writes it to an explicit path, creating the
// parent directory as needed.
func WriteConfigTo[T any](c *T, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	// 0600: the config may carry a database DSN with credentials.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return err
	}

	return nil
}
