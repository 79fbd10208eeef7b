package config

import (
	"errors"
	"fmt"
)

var (
	// ErrLoadConfig wraps every failure to read a configuration layer.
	ErrLoadConfig = errors.New("load config failed")
	// ErrEnvFile marks a .env file that exists but cannot be read.
	ErrEnvFile = fmt.Errorf("%w: env file", ErrLoadConfig)
	// ErrInvalidConfig is returned when a loaded value breaks a constraint.
	ErrInvalidConfig = errors.New("invalid config")
)
