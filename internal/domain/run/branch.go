package run

import (
	"fmt"
	"regexp"
	"strings"
)

// BranchSuffix is the fixed suffix appended to every healing branch name.
const BranchSuffix = "_AI_Fix"

// CommitPrefix is the literal prefix every healing commit message must carry.
const CommitPrefix = "[AI-AGENT] "

// BranchPattern is the shape every formatted branch name must match.
var BranchPattern = regexp.MustCompile(`^[A-Z0-9_]+_AI_Fix$`)

var protectedBranches = map[string]struct{}{
	"main":   {},
	"master": {},
}

var branchStrip = regexp.MustCompile(`[^A-Za-z0-9_ ]+`)
var separatorRuns = regexp.MustCompile(`[_ ]+`)

// FormatBranchName derives the healing branch name from team and leader
// identity: upper-case, strip everything outside [A-Za-z0-9_ ], collapse
// separator runs to a single underscore, join as TEAM_LEADER and append
// the fixed suffix. Returns an error when either component normalizes to
// the empty string.
func FormatBranchName(teamName, leaderName string) (string, error) {
	team := normalizeBranchComponent(teamName)
	leader := normalizeBranchComponent(leaderName)
	if team == "" {
		return "", fmt.Errorf("team name %q is empty after normalization: %w", teamName, errEmptyComponent)
	}
	if leader == "" {
		return "", fmt.Errorf("leader name %q is empty after normalization: %w", leaderName, errEmptyComponent)
	}
	return team + "_" + leader + BranchSuffix, nil
}

var errEmptyComponent = fmt.Errorf("branch component empty")

func normalizeBranchComponent(s string) string {
	s = branchStrip.ReplaceAllString(s, "")
	s = separatorRuns.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	return strings.ToUpper(s)
}

// GuardPushTarget rejects protected branch names as push targets.
// This check runs independently of FormatBranchName at every point a
// branch name is about to be used for a push, regardless of origin.
func GuardPushTarget(branch string) error {
	if _, protected := protectedBranches[strings.ToLower(branch)]; protected {
		return fmt.Errorf("refusing %q as push target: protected branch", branch)
	}
	if !BranchPattern.MatchString(branch) {
		return fmt.Errorf("branch %q does not match required pattern %s", branch, BranchPattern.String())
	}
	return nil
}
