package wiring

import (
	"fmt"
	"os"

	"github.com/velmie/stockrelay/cmd/internal/config"
	"github.com/velmie/stockrelay/cmd/internal/logging"
)

// Bootstrap loads the optional env file and config file and builds the process logger.
func Bootstrap(configPath, envFile string) (config.Config, *logging.Logger, error) {
	envLoaded := false
	if envFile != "" {
		found, err := config.LoadEnvFile(envFile)
		if err != nil {
			return config.Config{}, nil, err
		}
		envLoaded = found
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	if envFile != "" && !envLoaded {
		logger.Warn("env file not found, using process environment", "path", envFile)
	}

	return cfg, logger, nil
}
