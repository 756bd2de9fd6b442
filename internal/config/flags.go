// SPDX-License-Identifier: EPL-2.0

package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// CLI setting keys. Each is a flag and a WAKEFRONT_* environment variable,
// for example WAKEFRONT_LOG_LEVEL.
const (
	KeyConfig      = "config"
	KeyLogLevel    = "log-level"
	KeyLogFile     = "log-file"
	KeyMetricsAddr = "metrics-addr"
	KeyMQTTBroker  = "mqtt-broker"
	KeyAutoTrigger = "auto-trigger"
)

// Flags registers the CLI settings on fs.
func Flags(fs *pflag.FlagSet) {
	fs.StringP(KeyConfig, "c", "", "device profile (YAML)")
	fs.String(KeyLogLevel, "", "log level: trace, debug, info, warn, error")
	fs.String(KeyLogFile, "", "log file, rotated daily")
	fs.String(KeyMetricsAddr, "", "listen address of the Prometheus endpoint")
	fs.String(KeyMQTTBroker, "", "MQTT broker URL for remote control")
	fs.Duration(KeyAutoTrigger, 0, "trigger recognition once after this delay")
}

// NewViper binds fs and the WAKEFRONT_* environment.
func NewViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("WAKEFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("config: bind flags: %w", err)
	}
	return v, nil
}

// FromViper loads the profile named by the config setting, or the defaults
// when none is given, then applies every CLI setting that was set.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if path := v.GetString(KeyConfig); path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return nil, err
		}
	}

	if v.IsSet(KeyLogLevel) {
		cfg.Log.Level = v.GetString(KeyLogLevel)
	}
	if v.IsSet(KeyLogFile) {
		cfg.Log.File = v.GetString(KeyLogFile)
	}
	if v.IsSet(KeyMetricsAddr) {
		cfg.Metrics.Addr = v.GetString(KeyMetricsAddr)
	}
	if v.IsSet(KeyMQTTBroker) {
		cfg.MQTT.Broker = v.GetString(KeyMQTTBroker)
	}
	if v.IsSet(KeyAutoTrigger) {
		cfg.AutoTrigger = v.GetDuration(KeyAutoTrigger)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
