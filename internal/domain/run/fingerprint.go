package run

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint computes the deterministic dedup digest for a submission.
// The triple is normalized (trimmed, case-folded) so cosmetic differences
// in the same submission always hash identically. The digest is a dedup
// key only, never a secret or trust boundary.
func Fingerprint(repoURL, teamName, leaderName string) string {
	h := sha256.New()
	h.Write([]byte(normalize(repoURL)))
	h.Write([]byte{0})
	h.Write([]byte(normalize(teamName)))
	h.Write([]byte{0})
	h.Write([]byte(normalize(leaderName)))
	return hex.EncodeToString(h.Sum(nil))
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
