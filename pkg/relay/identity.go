package relay

import (
	"strconv"
	"strings"

	"github.com/tinyland-inc/anonchat/pkg/session"
)

// Normalize resolves a loosely-typed user identifier against the session
// store. Upstream identifiers arrive in inconsistent representations
// depending on call path (platform integers, stored strings, padded
// renderings), so lookup runs an ordered strategy chain and stops at the
// first hit:
//
//  1. exact match on the candidate as given
//  2. if the candidate is numeric, exact match on its canonical decimal
//     rendering (collapses "0042", "+42" and 42 onto the same key)
//  3. prefix/substring match as a last resort
//
// The chain is total: it always terminates with a definitive not-found.
// Normalize is a pure lookup and never mutates the store.
func Normalize(store session.Store, candidate string) (string, bool) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return "", false
	}

	if _, ok := store.Get(candidate); ok {
		return candidate, true
	}

	if n, err := strconv.ParseUint(strings.TrimPrefix(candidate, "+"), 10, 64); err == nil {
		canonical := strconv.FormatUint(n, 10)
		if canonical != candidate {
			if _, ok := store.Get(canonical); ok {
				return canonical, true
			}
		}
	}

	if sess, ok := store.FirstMatch(candidate); ok {
		return sess.UserID, true
	}

	return "", false
}

// NormalizeInt resolves a platform-native integer identifier. Its string
// rendering feeds the same strategy chain, so Normalize(store, "42") and
// NormalizeInt(store, 42) agree whenever a session for 42 exists in either
// representation.
func NormalizeInt(store session.Store, candidate int64) (string, bool) {
	return Normalize(store, strconv.FormatInt(candidate, 10))
}
