package session

// Mode is the session identity mode selected by the simultaneous-session cap.
type Mode int

const (
	// ModeStateless disables session tokens; payloads carry the account id.
	ModeStateless Mode = iota
	// ModeSingle keeps exactly one active token per account.
	ModeSingle
	// ModeWindow keeps a sliding window of the most recent tokens.
	ModeWindow
)

func (m Mode) String() string {
	switch m {
	case ModeStateless:
		return "stateless"
	case ModeSingle:
		return "single"
	case ModeWindow:
		return "window"
	default:
		return "unknown"
	}
}

// ModeFor maps a configured cap (0, 1 or N>1) to a Mode. Negative caps are
// treated as stateless.
func ModeFor(maxSessions int) Mode {
	switch {
	case maxSessions <= 0:
		return ModeStateless
	case maxSessions == 1:
		return ModeSingle
	default:
		return ModeWindow
	}
}

// Issue returns the token sequence after newToken is issued under limit.
//
// With limit <= 1 the result is exactly [newToken]. Otherwise the last limit-1
// existing tokens are kept (oldest evicted first), newToken is appended, and
// duplicates are dropped keeping first occurrence. The input is not modified.
func Issue(existing []string, limit int, newToken string) []string {
	if limit <= 1 {
		return []string{newToken}
	}

	keep := existing
	if len(keep) > limit-1 {
		keep = keep[len(keep)-(limit-1):]
	}

	out := make([]string, 0, len(keep)+1)
	seen := make(map[string]struct{}, len(keep)+1)
	for _, tok := range append(append([]string(nil), keep...), newToken) {
		if tok == "" {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// Revoke removes token if present. Revoking an absent token is a no-op.
func Revoke(existing []string, token string) []string {
	out := make([]string, 0, len(existing))
	for _, tok := range existing {
		if tok != token {
			out = append(out, tok)
		}
	}
	return out
}

// RevokeAll returns the empty sequence.
func RevokeAll([]string) []string {
	return []string{}
}

// Resolve reports whether token is an active member of existing.
func Resolve(existing []string, token string) bool {
	if token == "" {
		return false
	}
	for _, tok := range existing {
		if tok == token {
			return true
		}
	}
	return false
}
