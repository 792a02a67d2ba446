// Package lifecycle holds shared start/stop constants.
package lifecycle

import "time"

// DefaultTimeout bounds start hooks (pings, index builds) and graceful shutdown.
const DefaultTimeout = 10 * time.Second
