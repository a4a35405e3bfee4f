package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "PUPDATE"

// Keys that can be overridden by flags and PUPDATE_* env variables, e.g. PUPDATE_SSH_USER
const (
	KeyRemotes       = "remotes"
	KeyLogDir        = "log_dir"
	KeyRemoteCommand = "remote_command"
	KeyTransport     = "transport"
	KeyWorkers       = "workers"
	KeyArchive       = "archive"
	KeyLatest        = "latest"
	KeyListen        = "listen"
	KeySSHBinary     = "ssh.binary"
	KeySSHUser       = "ssh.user"
	KeySSHKey        = "ssh.key"
	KeySSHPassphrase = "ssh.passphrase"
	KeySSHKnownHosts = "ssh.known_hosts"
	KeySSHStrict     = "ssh.strict_host_key"
	KeySSHTimeout    = "ssh.connect_timeout"
	KeyElasticURL    = "elastic.url"
	KeyElasticIndex  = "elastic.index"
	KeyMQTTBroker    = "mqtt.broker"
	KeyMQTTTopic     = "mqtt.topic"
	KeyMQTTClientID  = "mqtt.client_id"
)

// NewViper returns a viper instance reading PUPDATE_* env variables,
// with the given flags (flag name -> key) bound on top.
func NewViper(flags *pflag.FlagSet, bindings map[string]string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for name, key := range bindings {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		err := v.BindPFlag(key, f)
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

// ApplyOverrides sets every key that was given explicitly as a flag or env variable.
//	Flags take precedence over env variables. Unset keys keep the file or default value.
func (c *Config) ApplyOverrides(v *viper.Viper) error {
	strs := map[string]*string{
		KeyLogDir:        &c.LogDir,
		KeyRemoteCommand: &c.RemoteCommand,
		KeyTransport:     &c.Transport,
		KeyListen:        &c.Listen,
		KeySSHBinary:     &c.SSH.Binary,
		KeySSHUser:       &c.SSH.User,
		KeySSHKey:        &c.SSH.Key,
		KeySSHPassphrase: &c.SSH.Passphrase,
		KeySSHKnownHosts: &c.SSH.KnownHosts,
		KeyElasticURL:    &c.Elastic.URL,
		KeyElasticIndex:  &c.Elastic.Index,
		KeyMQTTBroker:    &c.MQTT.Broker,
		KeyMQTTTopic:     &c.MQTT.Topic,
		KeyMQTTClientID:  &c.MQTT.ClientID,
	}
	for key, p := range strs {
		if v.IsSet(key) {
			*p = v.GetString(key)
		}
	}

	bools := map[string]*bool{
		KeyArchive:   &c.Archive,
		KeyLatest:    &c.Latest,
		KeySSHStrict: &c.SSH.StrictHostKey,
	}
	for key, p := range bools {
		if v.IsSet(key) {
			*p = v.GetBool(key)
		}
	}

	if v.IsSet(KeyWorkers) {
		c.Workers = v.GetInt(KeyWorkers)
	}
	if v.IsSet(KeySSHTimeout) {
		c.SSH.ConnectTimeout = v.GetDuration(KeySSHTimeout)
	}
	if v.IsSet(KeyRemotes) {
		c.Remotes = v.GetStringSlice(KeyRemotes)
	}

	return c.Validate()
}
