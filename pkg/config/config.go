// Package config loads the liscain controller configuration.
//
// The configuration lives in a single [liscain] section of an INI file:
//
//	[liscain]
//	database = liscain.db
//	command_socket = 127.0.0.1:1337
//	opt82_zmq_listener = 0.0.0.0:1338
//	liscain_adopt_dn = liscain.example.org
//	liscain_init_username = liscain
//	liscain_init_password = secret
//	autoconf_enabled = yes
//	autoconf_mode = opt82
//	autoconf_path = /etc/liscain/autoconf
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const section = "liscain"

// Config holds every tunable of the controller.
type Config struct {
	// Database is the device store specification. A bare path opens an
	// SQLite file at that location.
	Database string

	// CommandSocket is the bind address of the operator RPC socket.
	CommandSocket string

	// Opt82Listener is the bind address of the Option-82 report listener.
	Opt82Listener string

	// TFTPListener is the bind address of the bootstrap file server.
	TFTPListener string

	// AdoptDN is the DNS name switches call back to; it is substituted
	// into every emitted base configuration.
	AdoptDN string

	// InitUsername and InitPassword are the bootstrap credentials
	// established by the base configuration.
	InitUsername string
	InitPassword string

	// AutoconfEnabled activates an adopter hook on READY.
	AutoconfEnabled bool
	// AutoconfMode selects the adopter: "opt82" or "cdp".
	AutoconfMode string
	// AutoconfPath is the directory holding <identity>.cfg files.
	AutoconfPath string
	// AutoconfVersionWhitelist is a comma-separated list of allowed
	// firmware version prefixes; empty accepts everything.
	AutoconfVersionWhitelist string
	// JaspyAPI is the base URL of the external inventory used by the
	// cdp adopter.
	JaspyAPI string

	// ServeHTTP enables the HTTP blob server on HTTPPort.
	ServeHTTP bool
	HTTPPort  int

	// EphemeralBackend selects the adoption blob store: "memory" or
	// "redis". EphemeralRedis is the redis address, EphemeralTTL the
	// blob lifetime.
	EphemeralBackend string
	EphemeralRedis   string
	EphemeralTTL     time.Duration

	// Transport selects the management session for post-init driver
	// operations: "telnet" or "ssh". Initial setup always uses telnet,
	// the base configuration only guarantees that much.
	Transport string

	// BaseConfigPath is the directory holding per-vendor bootstrap
	// templates (baseconfig/<vendor>.cfg).
	BaseConfigPath string

	// LogLevel sets the logrus level for the daemon.
	LogLevel string
}

// Load reads the configuration file at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")

	v.SetDefault(section+".tftp_listener", ":69")
	v.SetDefault(section+".autoconf_enabled", "no")
	v.SetDefault(section+".serve_http", "no")
	v.SetDefault(section+".http_port", 8080)
	v.SetDefault(section+".ephemeral_backend", "memory")
	v.SetDefault(section+".ephemeral_ttl", 600)
	v.SetDefault(section+".liscain_transport", "telnet")
	v.SetDefault(section+".baseconfig_path", "baseconfig")
	v.SetDefault(section+".log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{
		Database:                 v.GetString(section + ".database"),
		CommandSocket:            v.GetString(section + ".command_socket"),
		Opt82Listener:            v.GetString(section + ".opt82_zmq_listener"),
		TFTPListener:             v.GetString(section + ".tftp_listener"),
		AdoptDN:                  v.GetString(section + ".liscain_adopt_dn"),
		InitUsername:             v.GetString(section + ".liscain_init_username"),
		InitPassword:             v.GetString(section + ".liscain_init_password"),
		AutoconfEnabled:          v.GetString(section+".autoconf_enabled") == "yes",
		AutoconfMode:             v.GetString(section + ".autoconf_mode"),
		AutoconfPath:             v.GetString(section + ".autoconf_path"),
		AutoconfVersionWhitelist: v.GetString(section + ".autoconf_version_whitelist_prefix"),
		JaspyAPI:                 v.GetString(section + ".autoconf_cdp_jaspy_api"),
		ServeHTTP:                v.GetString(section+".serve_http") == "yes",
		HTTPPort:                 v.GetInt(section + ".http_port"),
		EphemeralBackend:         v.GetString(section + ".ephemeral_backend"),
		EphemeralRedis:           v.GetString(section + ".ephemeral_redis"),
		EphemeralTTL:             time.Duration(v.GetInt(section+".ephemeral_ttl")) * time.Second,
		Transport:                v.GetString(section + ".liscain_transport"),
		BaseConfigPath:           v.GetString(section + ".baseconfig_path"),
		LogLevel:                 v.GetString(section + ".log_level"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required keys and enumerated values.
func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.CommandSocket == "" {
		return fmt.Errorf("command_socket is required")
	}
	if c.AutoconfEnabled {
		switch c.AutoconfMode {
		case "opt82", "cdp":
		case "":
			return fmt.Errorf("autoconf_enabled is set but autoconf_mode is not")
		default:
			return fmt.Errorf("unknown autoconf_mode %q (want opt82 or cdp)", c.AutoconfMode)
		}
		if c.AutoconfPath == "" {
			return fmt.Errorf("autoconf_enabled is set but autoconf_path is not")
		}
		if c.AutoconfMode == "cdp" && c.JaspyAPI == "" {
			return fmt.Errorf("autoconf_mode=cdp requires autoconf_cdp_jaspy_api")
		}
	}
	switch c.EphemeralBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown ephemeral_backend %q (want memory or redis)", c.EphemeralBackend)
	}
	if c.EphemeralBackend == "redis" && c.EphemeralRedis == "" {
		return fmt.Errorf("ephemeral_backend=redis requires ephemeral_redis")
	}
	switch c.Transport {
	case "telnet", "ssh":
	default:
		return fmt.Errorf("unknown liscain_transport %q (want telnet or ssh)", c.Transport)
	}
	return nil
}
