package assignments

import (
	"regexp"
	"strings"
)

var (
	numericID   = regexp.MustCompile(`^\d+$`)
	hexDashedID = regexp.MustCompile(`^[0-9a-f]+(?:-[0-9a-f]+)+$`)
	tokenID     = regexp.MustCompile(`^[A-Za-z0-9_]{6,}$`)
	idMarker    = regexp.MustCompile(`[0-9_]`)

	// Words, optionally joined by underscores, with at most two trailing
	// digits: "john_doe", "Alice42".
	wordLike = regexp.MustCompile(`^[A-Za-z]+(?:_[A-Za-z]+)*\d{0,2}$`)
)

// LooksLikeUserID reports whether identifier has the shape of a Todoist user
// ID rather than a name or email. It is a heuristic: it accepts all-digit
// strings, dashed lowercase hex of at least 8 characters, and opaque tokens
// of 6+ word characters containing a digit or underscore that do not read
// like a word. Anything it rejects is resolved against collaborator lists.
func LooksLikeUserID(identifier string) bool {
	s := strings.TrimSpace(identifier)
	switch {
	case s == "":
		return false
	case numericID.MatchString(s):
		return true
	case len(s) >= 8 && hexDashedID.MatchString(s):
		return true
	case tokenID.MatchString(s) && idMarker.MatchString(s) && !wordLike.MatchString(s):
		return true
	default:
		return false
	}
}
