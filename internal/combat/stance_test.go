package combat

import "testing"

func TestParseStance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want Stance
		ok   bool
	}{
		{"balanced", StanceBalanced, true},
		{"Aggressive", StanceAggressive, true},
		{"DEFENSIVE", StanceDefensive, true},
		{"berserker", StanceBerserker, true},
		{"counter", StanceCounter, true},
		{"sneaky", StanceBalanced, false},
		{"", StanceBalanced, false},
	}

	for _, tt := range tests {
		got, ok := ParseStance(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseStance(%q) = %v, %v; want %v, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestStanceStringRoundTrip(t *testing.T) {
	t.Parallel()

	for s := StanceBalanced; s <= StanceCounter; s++ {
		parsed, ok := ParseStance(s.String())
		if !ok || parsed != s {
			t.Errorf("Stance %d did not round-trip through its name %q", s, s.String())
		}
	}
}
