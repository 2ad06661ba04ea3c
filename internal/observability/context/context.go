// Package context holds correlation fields attached to log lines and spans.
package context

import (
	"context"
	"strings"

	"github.com/smallbiznis/missioncontrol/internal/auditcontext"
	"github.com/smallbiznis/missioncontrol/internal/orgcontext"
	"github.com/smallbiznis/missioncontrol/pkg/telemetry/correlation"
)

type requestIDKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	ctx = correlation.ContextWithCorrelationID(ctx, requestID)
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(requestIDKey{}).(string); ok {
		return value
	}
	return correlation.ExtractCorrelationID(ctx)
}

func OrgIDFromContext(ctx context.Context) string {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return ""
	}
	return orgID.String()
}

func ActorFromContext(ctx context.Context) (string, string) {
	return auditcontext.ActorFromContext(ctx)
}
