package config

import "time"

// JobxConfig configures the asynchronous parse-job workers.
type JobxConfig struct {
	Enabled           bool
	Concurrency       int
	Queues            []string
	PollInterval      time.Duration
	ShutdownTimeout   time.Duration
	DequeueTimeout    time.Duration
	DefaultRetryDelay time.Duration
	MaxRetries        int
}

func loadJobxConfig() JobxConfig {
	return JobxConfig{
		Enabled:           getEnvBool("JOBX_ENABLED", true),
		Concurrency:       getEnvInt("JOBX_CONCURRENCY", 2),
		Queues:            getEnvStringSlice("JOBX_QUEUES", []string{"parsing"}),
		PollInterval:      getEnvDuration("JOBX_POLL_INTERVAL", time.Second),
		ShutdownTimeout:   getEnvDuration("JOBX_SHUTDOWN_TIMEOUT", 30*time.Second),
		DequeueTimeout:    getEnvDuration("JOBX_DEQUEUE_TIMEOUT", 5*time.Second),
		DefaultRetryDelay: getEnvDuration("JOBX_DEFAULT_RETRY_DELAY", 30*time.Second),
		MaxRetries:        getEnvInt("JOBX_MAX_RETRIES", 2),
	}
}
