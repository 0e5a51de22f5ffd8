package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes environment variables, e.g. MINIDIS_PORT=6399
	EnvPrefix = "minidis"
	// DefaultConfPath is read when no config file is given and it exists
	DefaultConfPath = "minidis.yaml"
)

// transports
const (
	TransportTCP  = "tcp"
	TransportGnet = "gnet"
)

// scopes of the pending command queue
const (
	// QueueScopeSession keeps pending commands on the connection, a response only carries its own replies
	QueueScopeSession = "session"
	// QueueScopeDatabase keeps pending commands on the database, shared by every session selecting it
	QueueScopeDatabase = "database"
)

// Properties holds global config properties
var Properties *ServerProperties

// ServerProperties defines global config properties
type ServerProperties struct {
	Bind      string `mapstructure:"bind"`
	Port      int    `mapstructure:"port"`
	Transport string `mapstructure:"transport"`
	// Multicore lets the gnet transport run one event loop per CPU
	Multicore bool `mapstructure:"multicore"`

	LogDir   string `mapstructure:"log-dir"`
	LogLevel string `mapstructure:"log-level"`

	// MetricsAddr is the listen address of the prometheus endpoint, empty disables it
	MetricsAddr string `mapstructure:"metrics-addr"`

	QueueScope string `mapstructure:"queue-scope"`
	// NotifyBuffer is the capacity of the executed command notification channel
	NotifyBuffer int `mapstructure:"notify-buffer"`
}

var defaults = map[string]interface{}{
	"bind":          "0.0.0.0",
	"port":          6399,
	"transport":     TransportTCP,
	"multicore":     true,
	"log-dir":       "logs",
	"log-level":     "info",
	"metrics-addr":  "",
	"queue-scope":   QueueScopeSession,
	"notify-buffer": 32,
}

func init() {
	// default config
	Properties = &ServerProperties{
		Bind:         "0.0.0.0",
		Port:         6399,
		Transport:    TransportTCP,
		Multicore:    true,
		LogDir:       "logs",
		LogLevel:     "info",
		QueueScope:   QueueScopeSession,
		NotifyBuffer: 32,
	}
}

// Addr returns the listen address
func (p *ServerProperties) Addr() string {
	return fmt.Sprintf("%s:%d", p.Bind, p.Port)
}

// Validate rejects values the server cannot run with
func (p *ServerProperties) Validate() error {
	switch p.Transport {
	case TransportTCP, TransportGnet:
	default:
		return fmt.Errorf("invalid transport %s (expected one of: %s, %s)", p.Transport, TransportTCP, TransportGnet)
	}
	switch p.QueueScope {
	case QueueScopeSession, QueueScopeDatabase:
	default:
		return fmt.Errorf("invalid queue scope %s (expected one of: %s, %s)", p.QueueScope, QueueScopeSession, QueueScopeDatabase)
	}
	if p.Port < 0 || p.Port > 65535 {
		return fmt.Errorf("invalid port %d", p.Port)
	}
	if p.NotifyBuffer < 0 {
		return fmt.Errorf("invalid notify buffer %d", p.NotifyBuffer)
	}
	return nil
}

// LoadEnvFiles loads .env files into the process environment, missing files are ignored
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// Prepare registers defaults and environment lookup on v
func Prepare(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// Load reads properties from v, configFilename is optional.
// Precedence: flags bound to v, environment, config file, defaults.
func Load(v *viper.Viper, configFilename string) (*ServerProperties, error) {
	Prepare(v)
	if configFilename == "" && defaultConfigFileExists() {
		configFilename = DefaultConfPath
	}
	if configFilename != "" {
		v.SetConfigFile(configFilename)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s failed: %v", configFilename, err)
		}
	}
	props := &ServerProperties{}
	if err := v.Unmarshal(props); err != nil {
		return nil, fmt.Errorf("parse config failed: %v", err)
	}
	props.Transport = strings.ToLower(props.Transport)
	props.QueueScope = strings.ToLower(props.QueueScope)
	if err := props.Validate(); err != nil {
		return nil, err
	}
	return props, nil
}

// Setup loads properties and stores them into Properties
func Setup(v *viper.Viper, configFilename string) error {
	props, err := Load(v, configFilename)
	if err != nil {
		return err
	}
	Properties = props
	return nil
}

func defaultConfigFileExists() bool {
	info, err := os.Stat(DefaultConfPath)
	return err == nil && !info.IsDir()
}
