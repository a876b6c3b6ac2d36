package workflow

// RetryPolicy governs retry spacing for a task as delay * backoff^attempt.
// It is pure data describing intent to a downstream executor; the library
// never acts on it.
type RetryPolicy struct {
	// MaxRetries is the maximum number of retry attempts.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
	// Delay is the base delay between retries.
	Delay Duration `json:"delay" yaml:"delay"`
	// BackoffFactor is the multiplier applied to the delay per attempt.
	BackoffFactor float64 `json:"backoff_factor" yaml:"backoff_factor"`
}

// DefaultRetryPolicy returns the conventional policy of 3 retries spaced
// 5 seconds apart with exponential backoff factor 2.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{MaxRetries: 3, Delay: Seconds(5), BackoffFactor: 2.0}
}

// TimeoutPolicy bounds a task's execution time.
type TimeoutPolicy struct {
	// Timeout is the maximum allowed execution time.
	Timeout Duration `json:"timeout" yaml:"timeout"`
	// KillOnTimeout requests the executor terminate the task on expiry.
	KillOnTimeout bool `json:"kill_on_timeout" yaml:"kill_on_timeout"`
}

// NewTimeoutPolicy returns a kill-on-expiry timeout policy.
func NewTimeoutPolicy(timeout Duration) *TimeoutPolicy {
	return &TimeoutPolicy{Timeout: timeout, KillOnTimeout: true}
}
