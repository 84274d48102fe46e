package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Address        string `mapstructure:"address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

func (config ServerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":3000")
	v.SetDefault("server.metrics_address", ":8080")
}

func (config ServerConfig) validate() error {
	if config.Address == "" {
		return fmt.Errorf("missing variable: address")
	}
	return nil
}

func (config ServerConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return bindEnv(v, map[string]string{
		"server.address":         "SERVER_ADDRESS",
		"server.metrics_address": "METRICS_ADDRESS",
	})
}
