package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DataDir string
	DestDir string
	Workers int

	Prefer string

	MetricsAddr string

	RemoteLogURL    string
	DownloadTimeout time.Duration

	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration

	PollInterval    time.Duration
	MaxPollInterval time.Duration
	MaxRemoteWait   time.Duration
	MaxPollFailures int
	SuccessMarker   string
	FailureMarker   string
}

func Load() (*Config, error) {
	workers, err := strconv.Atoi(getEnv("WORKERS", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid WORKERS: %w", err)
	}

	retryAttempts, err := strconv.Atoi(getEnv("RETRY_MAX_ATTEMPTS", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid RETRY_MAX_ATTEMPTS: %w", err)
	}

	pollFailures, err := strconv.Atoi(getEnv("MAX_POLL_FAILURES", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_POLL_FAILURES: %w", err)
	}

	retryBase, err := getDuration("RETRY_BASE_DELAY", "500ms")
	if err != nil {
		return nil, err
	}
	retryMax, err := getDuration("RETRY_MAX_DELAY", "30s")
	if err != nil {
		return nil, err
	}
	pollInterval, err := getDuration("POLL_INTERVAL", "5s")
	if err != nil {
		return nil, err
	}
	maxPollInterval, err := getDuration("MAX_POLL_INTERVAL", "1m")
	if err != nil {
		return nil, err
	}
	maxRemoteWait, err := getDuration("MAX_REMOTE_WAIT", "2h")
	if err != nil {
		return nil, err
	}
	downloadTimeout, err := getDuration("DOWNLOAD_TIMEOUT", "10m")
	if err != nil {
		return nil, err
	}

	return &Config{
		DataDir:          getEnv("DATA_DIR", "/data/work"),
		DestDir:          getEnv("DEST_DIR", "/data/out"),
		Workers:          workers,
		Prefer:           getEnv("PROCESSOR_PREFER", "auto"),
		MetricsAddr:      getEnv("METRICS_ADDR", ""),
		RemoteLogURL:     getEnv("REMOTE_LOG_URL", ""),
		DownloadTimeout:  downloadTimeout,
		RetryMaxAttempts: retryAttempts,
		RetryBaseDelay:   retryBase,
		RetryMaxDelay:    retryMax,
		PollInterval:     pollInterval,
		MaxPollInterval:  maxPollInterval,
		MaxRemoteWait:    maxRemoteWait,
		MaxPollFailures:  pollFailures,
		SuccessMarker:    getEnv("SUCCESS_MARKER", ""),
		FailureMarker:    getEnv("FAILURE_MARKER", ""),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key, defaultValue string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
