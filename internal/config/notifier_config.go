package config

import (
	"errors"

	"github.com/spf13/viper"
)

type NotifierConfig struct {
	ContextMaxLength         int `mapstructure:"context_max_length"`
	CandidatesPageSize       int `mapstructure:"candidates_page_size"`
	DeadLetterExpirationDays int `mapstructure:"dead_letter_expiration_days"`
}

func (config NotifierConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("notifier.context_max_length", 100)
	v.SetDefault("notifier.candidates_page_size", 200)
	v.SetDefault("notifier.dead_letter_expiration_days", 30)
}

func (config NotifierConfig) validate() error {
	var errs []error
	if config.ContextMaxLength < 1 {
		errs = append(errs, errors.New("context_max_length must be greater than zero"))
	}
	if config.CandidatesPageSize < 1 {
		errs = append(errs, errors.New("candidates_page_size must be greater than zero"))
	}
	if config.DeadLetterExpirationDays < 1 {
		errs = append(errs, errors.New("dead_letter_expiration_days must be greater than zero"))
	}
	return errors.Join(errs...)
}

func (config NotifierConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return v.BindEnv("notifier.context_max_length", "NOTIFIER_CONTEXT_MAX_LENGTH")
}
