// Package delivery holds the servers that expose the account use cases.
package delivery

import "context"

// Delivery is a long-running server started by the entry point and stopped through fx hooks.
type Delivery interface {
	Serve(ctx context.Context) error
}
