package orgcontext

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
)

func TestOrgIDRoundTrip(t *testing.T) {
	ctx := WithOrgID(context.Background(), snowflake.ID(42))
	orgID, ok := OrgIDFromContext(ctx)
	if !ok || orgID != 42 {
		t.Fatalf("expected org 42, got %d (ok=%v)", orgID, ok)
	}
}

func TestZeroOrgIDIsIgnored(t *testing.T) {
	ctx := WithOrgID(context.Background(), 0)
	if _, ok := OrgIDFromContext(ctx); ok {
		t.Fatalf("expected no org in context")
	}
}
