package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// LoadSchedulerProcess reads SchedulerProcess from the environment.
func LoadSchedulerProcess() (*SchedulerProcess, error) {
	var cfg SchedulerProcess
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse scheduler process config: %w", err)
	}
	return &cfg, nil
}

// LoadConsumerProcess reads ConsumerProcess from the environment.
func LoadConsumerProcess() (*ConsumerProcess, error) {
	var cfg ConsumerProcess
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse consumer process config: %w", err)
	}
	return &cfg, nil
}
