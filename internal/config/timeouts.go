package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable timeout values.
// These values can be customized via environment variables.
type Timeouts struct {
	Task              time.Duration // Timeout for a single platform task (clone, delete, stop)
	TaskPoll          time.Duration // Interval between task status polls
	AgentReady        time.Duration // Timeout for the guest agent to answer after boot
	Publish           time.Duration // Timeout for publishing one artifact
	SSHDial           time.Duration // Timeout for establishing the node SSH connection
	RetryMaxAttempts  int           // Maximum number of retry attempts
	RetryInitialDelay time.Duration // Initial delay between retries
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - PVEFLEET_TIMEOUT_TASK (default: 2m)
//   - PVEFLEET_TIMEOUT_TASK_POLL (default: 2s)
//   - PVEFLEET_TIMEOUT_AGENT_READY (default: 5m)
//   - PVEFLEET_TIMEOUT_PUBLISH (default: 1m)
//   - PVEFLEET_TIMEOUT_SSH_DIAL (default: 10s)
//   - PVEFLEET_RETRY_MAX_ATTEMPTS (default: 5)
//   - PVEFLEET_RETRY_INITIAL_DELAY (default: 1s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Task:              parseDuration("PVEFLEET_TIMEOUT_TASK", 2*time.Minute),
		TaskPoll:          parseDuration("PVEFLEET_TIMEOUT_TASK_POLL", 2*time.Second),
		AgentReady:        parseDuration("PVEFLEET_TIMEOUT_AGENT_READY", 5*time.Minute),
		Publish:           parseDuration("PVEFLEET_TIMEOUT_PUBLISH", 1*time.Minute),
		SSHDial:           parseDuration("PVEFLEET_TIMEOUT_SSH_DIAL", 10*time.Second),
		RetryMaxAttempts:  parseInt("PVEFLEET_RETRY_MAX_ATTEMPTS", 5),
		RetryInitialDelay: parseDuration("PVEFLEET_RETRY_INITIAL_DELAY", 1*time.Second),
	}
}

// TestTimeouts returns timeouts short enough for unit tests. Kept out
// of the test files so platform and reconcile tests can share it.
func TestTimeouts() *Timeouts {
	return &Timeouts{
		Task:              100 * time.Millisecond,
		TaskPoll:          10 * time.Millisecond,
		AgentReady:        100 * time.Millisecond,
		Publish:           100 * time.Millisecond,
		SSHDial:           50 * time.Millisecond,
		RetryMaxAttempts:  2,
		RetryInitialDelay: 10 * time.Millisecond,
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}
