package run_test

import (
	"regexp"
	"testing"

	"github.com/rift-labs/rift-core/internal/domain/run"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestFingerprintDeterministic(t *testing.T) {
	a := run.Fingerprint("https://github.com/acme/repo", "Team Rocket", "Jessie")
	b := run.Fingerprint("https://github.com/acme/repo", "Team Rocket", "Jessie")
	if a != b {
		t.Fatalf("same triple produced different fingerprints: %s vs %s", a, b)
	}
	if !hexDigest.MatchString(a) {
		t.Fatalf("fingerprint %q is not a 64-char lowercase hex digest", a)
	}
}

func TestFingerprintNormalizesCaseAndWhitespace(t *testing.T) {
	base := run.Fingerprint("https://github.com/acme/repo", "team rocket", "jessie")
	variants := []struct {
		repo, team, leader string
	}{
		{"  https://github.com/acme/repo  ", "team rocket", "jessie"},
		{"https://github.com/ACME/Repo", "team rocket", "jessie"},
		{"https://github.com/acme/repo", "TEAM ROCKET", "Jessie"},
		{"https://github.com/acme/repo", "team rocket", " JESSIE "},
	}
	for _, v := range variants {
		got := run.Fingerprint(v.repo, v.team, v.leader)
		if got != base {
			t.Errorf("Fingerprint(%q, %q, %q) = %s, want %s (cosmetic variants must collide)",
				v.repo, v.team, v.leader, got, base)
		}
	}
}

func TestFingerprintDivergesPerField(t *testing.T) {
	base := run.Fingerprint("https://github.com/acme/repo", "team", "leader")
	diffs := []struct {
		name               string
		repo, team, leader string
	}{
		{"repo", "https://github.com/acme/other", "team", "leader"},
		{"team", "https://github.com/acme/repo", "other", "leader"},
		{"leader", "https://github.com/acme/repo", "team", "other"},
	}
	for _, d := range diffs {
		if got := run.Fingerprint(d.repo, d.team, d.leader); got == base {
			t.Errorf("changing %s did not change the fingerprint", d.name)
		}
	}
}

func TestFingerprintFieldBoundaries(t *testing.T) {
	// "ab"+"c" and "a"+"bc" must not collide across the field separator.
	a := run.Fingerprint("r", "ab", "c")
	b := run.Fingerprint("r", "a", "bc")
	if a == b {
		t.Fatal("field boundary collision: (ab,c) and (a,bc) hash identically")
	}
}
