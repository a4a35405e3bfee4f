// Package config loads the pupdate configuration file and environment
package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

const (
	FileName = ".pupdate"

	TransportSSH    = "ssh"
	TransportNative = "native"

	DefaultRemoteCommand  = "sudo pupdate"
	DefaultSSHBinary      = "ssh"
	DefaultConnectTimeout = 15 * time.Second
	DefaultElasticIndex   = "pupdate-outcomes"
	DefaultMQTTTopic      = "pupdate"
)

var (
	DefaultRefresh = []string{"sudo", "apt-get", "update"}
	DefaultUpgrade = []string{"sudo", "apt-get", "upgrade", "-y"}
)

type Config struct {
	Remotes       []string `yaml:"remotes"`
	LogDir        string   `yaml:"log_dir"`
	RemoteCommand string   `yaml:"remote_command"`
	Transport     string   `yaml:"transport"`
	SSH           SSH      `yaml:"ssh"`
	Local         Local    `yaml:"local"`
	Workers       int      `yaml:"workers"`
	Archive       bool     `yaml:"archive"`
	Latest        bool     `yaml:"latest"`
	Listen        string   `yaml:"listen"`
	Elastic       Elastic  `yaml:"elastic"`
	MQTT          MQTT     `yaml:"mqtt"`
}

type SSH struct {
	Binary         string        `yaml:"binary"`
	Args           []string      `yaml:"args,omitempty"`
	User           string        `yaml:"user,omitempty"`
	Key            string        `yaml:"key,omitempty"`
	Passphrase     string        `yaml:"passphrase,omitempty"`
	KnownHosts     string        `yaml:"known_hosts"`
	StrictHostKey  bool          `yaml:"strict_host_key"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// Local holds the argv of the two local update steps
type Local struct {
	Refresh []string `yaml:"refresh"`
	Upgrade []string `yaml:"upgrade"`
}

type Elastic struct {
	URL   string `yaml:"url,omitempty"`
	Index string `yaml:"index"`
}

type MQTT struct {
	Broker   string `yaml:"broker,omitempty"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id,omitempty"`
}

// ConfigError is returned for unreadable, malformed or invalid configuration
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid configuration: %s", e.Err)
	}
	return fmt.Sprintf("invalid configuration in %s: %s", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Default returns the configuration used for absent keys
func Default() *Config {
	return &Config{
		RemoteCommand: DefaultRemoteCommand,
		Transport:     TransportSSH,
		SSH: SSH{
			Binary:         DefaultSSHBinary,
			KnownHosts:     filepath.Join(homeDir(), ".ssh", "known_hosts"),
			StrictHostKey:  true,
			ConnectTimeout: DefaultConnectTimeout,
		},
		Local: Local{
			Refresh: append([]string(nil), DefaultRefresh...),
			Upgrade: append([]string(nil), DefaultUpgrade...),
		},
		Elastic: Elastic{Index: DefaultElasticIndex},
		MQTT:    MQTT{Topic: DefaultMQTTTopic},
	}
}

// DefaultPath returns ~/.pupdate when it exists, otherwise an empty string
func DefaultPath() string {
	home := homeDir()
	if home == "" {
		return ""
	}
	path := filepath.Join(home, FileName)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// Load reads the configuration file at path on top of the defaults.
//	An empty path falls back to DefaultPath, and to the defaults alone when that does not exist.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	c := Default()
	if path == "" {
		log.Debugln("No configuration file, using defaults")
		return c, nil
	}

	log.Println("Loading configuration:", path)
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	err = c.decode(b)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	err = c.Validate()
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	log.Debugf("Loaded configuration:\n%s", spew.Sdump(c.Redacted()))
	return c, nil
}

func (c *Config) decode(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if strings.HasPrefix(trimmed, "{") {
		// JSON documents may be indented with tabs, which YAML rejects
		var raw map[string]interface{}
		err := json.Unmarshal(b, &raw)
		if err != nil {
			return fmt.Errorf("error parsing JSON: %s", err)
		}
		b, err = yaml.Marshal(raw)
		if err != nil {
			return err
		}
	}
	err := checkDurations(b)
	if err != nil {
		return err
	}
	err = yaml.Unmarshal(b, c)
	if err != nil {
		return fmt.Errorf("error parsing YAML: %s", err)
	}
	return nil
}

// checkDurations rejects bare numbers for durations, which would be read as nanoseconds
func checkDurations(b []byte) error {
	var doc struct {
		SSH struct {
			ConnectTimeout interface{} `yaml:"connect_timeout"`
		} `yaml:"ssh"`
	}
	// malformed documents are reported by the actual decoding
	if yaml.Unmarshal(b, &doc) != nil {
		return nil
	}
	switch v := doc.SSH.ConnectTimeout.(type) {
	case int, int64, uint64, float64:
		return fmt.Errorf("ssh connect_timeout must be a duration string such as \"15s\", got %v", v)
	}
	return nil
}

// Validate checks the values that cannot be fixed by defaults
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportSSH, TransportNative:
	default:
		return fmt.Errorf("unknown transport %q, expected %s or %s", c.Transport, TransportSSH, TransportNative)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative: %d", c.Workers)
	}
	if strings.TrimSpace(c.RemoteCommand) == "" {
		return fmt.Errorf("remote_command is empty")
	}
	if len(c.Local.Refresh) == 0 || len(c.Local.Upgrade) == 0 {
		return fmt.Errorf("local refresh and upgrade commands must not be empty")
	}
	if c.SSH.ConnectTimeout < 0 {
		return fmt.Errorf("ssh connect_timeout must not be negative")
	}
	for i, remote := range c.Remotes {
		if strings.TrimSpace(remote) == "" {
			return fmt.Errorf("remote %d is empty", i)
		}
		if strings.HasPrefix(remote, "-") {
			return fmt.Errorf("remote %q must not start with '-'", remote)
		}
	}
	return nil
}

// Redacted returns a copy without secrets
func (c Config) Redacted() Config {
	if c.SSH.Passphrase != "" {
		c.SSH.Passphrase = "***"
	}
	return c
}

// YAML renders the configuration without secrets
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c.Redacted())
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}
