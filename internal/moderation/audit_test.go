package moderation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuditReasonFormat(t *testing.T) {
	got := AuditReason("alice", 42, "being rude", ReasonExtra{Key: "case", Value: "abc123"})
	assert.Equal(t, "alice|42: being rude (case: abc123)", got)
}

func TestAuditReasonFallbacks(t *testing.T) {
	got := AuditReason("", 42, "")
	assert.Equal(t, "<UNKNOWN>|42: no reason provided", got)
}

func TestAuditReasonExtraKeysUseSpaces(t *testing.T) {
	got := AuditReason("alice", 42, "x", ReasonExtra{Key: "delete_days", Value: "7"})
	assert.Contains(t, got, "(delete days: 7)")
}

func TestAuditReasonSkipsEmptyExtras(t *testing.T) {
	got := AuditReason("alice", 42, "x", ReasonExtra{Key: "expires", Value: ""})
	assert.Equal(t, "alice|42: x", got)
}

func TestAuditReasonTruncatesLongReasons(t *testing.T) {
	long := strings.Repeat("a", 600)
	got := AuditReason("alice", 42, long, ReasonExtra{Key: "case", Value: "abc123"})
	assert.LessOrEqual(t, len(got), 512)
	assert.True(t, strings.HasPrefix(got, "alice|42: aaa"))
	assert.Contains(t, got, "…")
	assert.True(t, strings.HasSuffix(got, "(case: abc123)"), "annotations are never dropped")
}

func TestAuditReasonCapsOversizedPrefix(t *testing.T) {
	// Issuer name plus annotations alone exceed the limit; the cap must still
	// hold and the issuer id must survive.
	name := strings.Repeat("n", 600)
	got := AuditReason(name, 42, "reason", ReasonExtra{Key: "case", Value: strings.Repeat("x", 100)})
	assert.LessOrEqual(t, len(got), 512)
	assert.Contains(t, got, "|42: ")
}
