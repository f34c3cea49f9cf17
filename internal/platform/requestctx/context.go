// Package requestctx carries per-request values shared by handlers and the order
// services: the scoped logger and the store the operator acts on.
package requestctx

import (
	"context"

	"go.uber.org/zap"
)

type (
	loggerKey struct{}
	storeKey  struct{}
)

var nop = zap.NewNop()

// WithLogger attaches logger. A nil logger detaches logging.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if logger == nil {
		logger = nop
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// Logger returns the request logger, or a no-op logger.
func Logger(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
			return logger
		}
	}
	return nop
}

// NoopLogger is the logger Logger falls back to.
func NoopLogger() *zap.Logger { return nop }

// WithStoreID scopes downstream order API calls to storeID. Empty ids leave ctx unchanged.
func WithStoreID(ctx context.Context, storeID string) context.Context {
	if storeID == "" {
		return ctx
	}
	return context.WithValue(ctx, storeKey{}, storeID)
}

// StoreID returns the store the request acts on, "" when unscoped.
func StoreID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(storeKey{}).(string)
	return id
}
