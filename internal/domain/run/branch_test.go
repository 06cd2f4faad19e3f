package run_test

import (
	"testing"

	"github.com/rift-labs/rift-core/internal/domain/run"
)

func TestFormatBranchName(t *testing.T) {
	tests := []struct {
		name   string
		team   string
		leader string
		want   string
	}{
		{"simple", "rocket", "jessie", "ROCKET_JESSIE_AI_Fix"},
		{"spaces collapse", "team rocket", "jessie james", "TEAM_ROCKET_JESSIE_JAMES_AI_Fix"},
		{"special chars stripped", "té@m!", "l$e%a^d&e*r", "TM_LEADER_AI_Fix"},
		{"mixed separators", "a__b  c", "d_ e", "A_B_C_D_E_AI_Fix"},
		{"leading trailing separators", "_team_", " leader ", "TEAM_LEADER_AI_Fix"},
		{"digits kept", "team42", "leader7", "TEAM42_LEADER7_AI_Fix"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := run.FormatBranchName(tt.team, tt.leader)
			if err != nil {
				t.Fatalf("FormatBranchName(%q, %q): %v", tt.team, tt.leader, err)
			}
			if got != tt.want {
				t.Fatalf("FormatBranchName(%q, %q) = %q, want %q", tt.team, tt.leader, got, tt.want)
			}
			if !run.BranchPattern.MatchString(got) {
				t.Fatalf("formatted branch %q does not match %s", got, run.BranchPattern)
			}
		})
	}
}

func TestFormatBranchNameEmptyComponent(t *testing.T) {
	cases := []struct{ team, leader string }{
		{"", "leader"},
		{"team", ""},
		{"!!!", "leader"},
		{"team", "@@@"},
		{"   ", "___"},
	}
	for _, c := range cases {
		if _, err := run.FormatBranchName(c.team, c.leader); err == nil {
			t.Errorf("FormatBranchName(%q, %q) succeeded, want error", c.team, c.leader)
		}
	}
}

func TestGuardPushTargetProtectedBranches(t *testing.T) {
	for _, branch := range []string{"main", "master", "Main", "MASTER", "MaIn"} {
		if err := run.GuardPushTarget(branch); err == nil {
			t.Errorf("GuardPushTarget(%q) allowed a protected branch", branch)
		}
	}
}

func TestGuardPushTargetPattern(t *testing.T) {
	if err := run.GuardPushTarget("TEAM_LEADER_AI_Fix"); err != nil {
		t.Fatalf("well-formed branch rejected: %v", err)
	}
	for _, branch := range []string{"feature/foo", "team_leader_ai_fix", "TEAM_LEADER", "", "TEAM LEADER_AI_Fix"} {
		if err := run.GuardPushTarget(branch); err == nil {
			t.Errorf("GuardPushTarget(%q) allowed a non-conforming branch", branch)
		}
	}
}
