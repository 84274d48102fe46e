package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type BrokerConfig struct {
	URL                   string        `mapstructure:"url"`
	Stream                string        `mapstructure:"stream"`
	Subject               string        `mapstructure:"subject"`
	Durable               string        `mapstructure:"durable"`
	ConnectTimeout        time.Duration `mapstructure:"connect_timeout"`
	DuplicatesWindow      time.Duration `mapstructure:"duplicates_window"`
	MaxDeliver            int           `mapstructure:"max_deliver"`
	ProcessingTimeout     time.Duration `mapstructure:"processing_timeout"`
	RedeliveryDelay       time.Duration `mapstructure:"redelivery_delay"`
	MaxRedeliveryDelay    time.Duration `mapstructure:"max_redelivery_delay"`
	MaxPublishesPerSecond float32       `mapstructure:"max_publishes_per_second"`
}

func (config BrokerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("broker.stream", "JOB_POSTINGS")
	v.SetDefault("broker.subject", "jobs.created")
	v.SetDefault("broker.durable", "notification-worker")
	v.SetDefault("broker.connect_timeout", 5*time.Second)
	v.SetDefault("broker.duplicates_window", 2*time.Minute)
	v.SetDefault("broker.max_deliver", 5)
	v.SetDefault("broker.processing_timeout", 30*time.Second)
	v.SetDefault("broker.redelivery_delay", 5*time.Second)
	v.SetDefault("broker.max_redelivery_delay", 5*time.Minute)
}

// AckWait leaves the worker enough room to finish a message before the broker redelivers it.
func (config BrokerConfig) AckWait() time.Duration {
	return config.ProcessingTimeout + 10*time.Second
}

func (config BrokerConfig) validate() error {
	var missingFields []string

	if config.URL == "" {
		missingFields = append(missingFields, "url")
	}
	if config.Stream == "" {
		missingFields = append(missingFields, "stream")
	}
	if config.Subject == "" {
		missingFields = append(missingFields, "subject")
	}
	if config.Durable == "" {
		missingFields = append(missingFields, "durable")
	}

	var errs []error
	if len(missingFields) > 0 {
		errs = append(errs, fmt.Errorf("missing required variables: %s", strings.Join(missingFields, ", ")))
	}
	if config.MaxDeliver < 1 {
		errs = append(errs, errors.New("max_deliver must be greater than zero"))
	}
	if config.ProcessingTimeout <= 0 {
		errs = append(errs, errors.New("processing_timeout must be positive"))
	}
	if config.DuplicatesWindow <= 0 {
		errs = append(errs, errors.New("duplicates_window must be positive"))
	}
	if config.RedeliveryDelay <= 0 {
		errs = append(errs, errors.New("redelivery_delay must be positive"))
	}
	if config.MaxRedeliveryDelay < config.RedeliveryDelay {
		errs = append(errs, errors.New("max_redelivery_delay must not be less than redelivery_delay"))
	}
	if config.MaxPublishesPerSecond < 0 {
		errs = append(errs, errors.New("max_publishes_per_second must not be negative"))
	}

	return errors.Join(errs...)
}

func (config BrokerConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return bindEnv(v, map[string]string{
		"broker.url":                "BROKER_URL",
		"broker.max_deliver":        "BROKER_MAX_DELIVER",
		"broker.processing_timeout": "BROKER_PROCESSING_TIMEOUT",
	})
}
