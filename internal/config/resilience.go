package config

import (
	"time"

	"order_sheets_sync/internal/retry"
)

// ResilienceConfig holds retry policies for calls made outside a sync pass.
// The pass itself never retries.
type ResilienceConfig struct {
	Notify retry.Config
}

var DefaultResilienceConfig = ResilienceConfig{
	Notify: retry.Config{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   10 * time.Second,
		Timeout:    10 * time.Second,
	},
}
