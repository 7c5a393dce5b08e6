package moderation

import (
	"fmt"
	"strings"
)

// maxAuditReasonLen is the platform limit for audit-log reason strings.
const maxAuditReasonLen = 512

// ReasonExtra is one key/value annotation appended to an audit reason.
type ReasonExtra struct {
	Key   string
	Value string
}

// AuditReason builds the audit-log reason string attached to every gateway
// call, carrying issuer identity for accountability:
//
//	name|id: reason (key: value)(key: value)
//
// When the combined string would exceed the platform limit, the free-text
// reason is truncated to fit; issuer identity and annotations are never
// dropped.
func AuditReason(issuerName string, issuerID int64, reason string, extras ...ReasonExtra) string {
	if issuerName == "" {
		issuerName = "<UNKNOWN>"
	}
	if reason == "" {
		reason = "no reason provided"
	}
	var extra strings.Builder
	for _, e := range extras {
		if e.Value == "" {
			continue
		}
		fmt.Fprintf(&extra, " (%s: %s)", strings.ReplaceAll(e.Key, "_", " "), e.Value)
	}
	tail := extra.String()
	idPart := fmt.Sprintf("|%d: ", issuerID)

	// The name is the elastic part of the prefix; the issuer id and the
	// annotations always survive truncation.
	issuerName = truncate(issuerName, maxAuditReasonLen-len(idPart)-len(tail))
	prefix := issuerName + idPart
	reason = truncate(reason, maxAuditReasonLen-len(prefix)-len(tail))

	out := prefix + reason + tail
	// Annotations alone can blow the limit; the cap must hold regardless, so
	// as a last resort cut the assembled string on a rune boundary.
	if len(out) > maxAuditReasonLen {
		runes := []rune(out)
		for len(runes) > 0 && len(string(runes)) > maxAuditReasonLen {
			runes = runes[:len(runes)-1]
		}
		out = string(runes)
	}
	return out
}

// truncate shortens s to at most budget bytes on a rune boundary, marking the
// cut with an ellipsis. Strings within budget come back unchanged.
func truncate(s string, budget int) string {
	if len(s) <= budget {
		return s
	}
	const ellipsis = "…"
	if budget < len(ellipsis) {
		return ""
	}
	runes := []rune(s)
	for len(runes) > 0 && len(string(runes))+len(ellipsis) > budget {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + ellipsis
}
