package utils

import (
	"context"
	"time"
)

// FastQueryTimeout bounds simple lookups (sessions, single-row fetches).
const FastQueryTimeout = 10 * time.Second

// DefaultQueryTimeout is the default timeout for database queries.
const DefaultQueryTimeout = 30 * time.Second

// AnalysisTimeout bounds operations that call the language model oracle:
// form discovery, vendor extraction, and column classification.
const AnalysisTimeout = 3 * time.Minute

// GetQueryContext returns a context with the given timeout, falling back to
// a background context when no parent is provided.
func GetQueryContext(parentCtx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	return context.WithTimeout(parentCtx, timeout)
}

// GetFastQueryContext returns a context with fast query timeout
func GetFastQueryContext(parentCtx context.Context) (context.Context, context.CancelFunc) {
	return GetQueryContext(parentCtx, FastQueryTimeout)
}

// GetDefaultQueryContext returns a context with default timeout
func GetDefaultQueryContext(parentCtx context.Context) (context.Context, context.CancelFunc) {
	return GetQueryContext(parentCtx, DefaultQueryTimeout)
}

// GetAnalysisContext returns a context with the oracle analysis timeout.
func GetAnalysisContext(parentCtx context.Context) (context.Context, context.CancelFunc) {
	return GetQueryContext(parentCtx, AnalysisTimeout)
}
