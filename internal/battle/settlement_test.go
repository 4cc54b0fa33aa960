package battle

import (
	"testing"

	"github.com/arenaclash/arenaclash/internal/combat"
)

// captureNotifier records every settlement message for assertions.
type captureNotifier struct {
	results   []Result
	summaries []Summary
}

func (c *captureNotifier) BattleResult(r Result)     { c.results = append(c.results, r) }
func (c *captureNotifier) BattleCompleted(s Summary) { c.summaries = append(c.summaries, s) }

func runSettledBattle(t *testing.T, notifier Notifier) *Session {
	t.Helper()

	s := newTestSession(1, notifier, testSeed("alice", 20, 500, 1200), testSeed("bob", 10, 500, 800))
	s.SubmitTurn("alice", 1, 0, "balanced", false)
	s.SubmitTurn("bob", 1, 0, "balanced", false)
	s.ExecuteRound("alice")
	s.ExecuteRound("bob")
	if s.Status() != StatusCompleted {
		t.Fatalf("Battle should be completed, got %v", s.Status())
	}
	return s
}

func TestSettlementConservation(t *testing.T) {
	t.Parallel()

	capture := &captureNotifier{}
	runSettledBattle(t, capture)

	if len(capture.summaries) != 1 {
		t.Fatalf("Expected exactly one summary, got %d", len(capture.summaries))
	}
	sum := capture.summaries[0]

	// total = 1200 + 800, fee = 2000 * 250/10000
	if sum.TotalStake != 2000 {
		t.Errorf("Total stake should be 2000, got %d", sum.TotalStake)
	}
	if sum.Fee != 50 {
		t.Errorf("Fee should be 50, got %d", sum.Fee)
	}

	var payout Amount
	for _, res := range capture.results {
		payout += res.Payout
	}
	if payout+sum.Fee != sum.TotalStake {
		t.Errorf("Payout %d + fee %d must equal total %d", payout, sum.Fee, sum.TotalStake)
	}
}

func TestSettlementMessages(t *testing.T) {
	t.Parallel()

	capture := &captureNotifier{}
	runSettledBattle(t, capture)

	if len(capture.results) != 2 {
		t.Fatalf("Expected two per-player results, got %d", len(capture.results))
	}

	byRecipient := map[string]Result{}
	for _, res := range capture.results {
		byRecipient[res.Recipient] = res
	}

	winner := byRecipient["alice"]
	if winner.Payout != 1950 || winner.XP != 150 {
		t.Errorf("Winner should get payout 1950 and 150 XP, got %d/%d", winner.Payout, winner.XP)
	}
	loser := byRecipient["bob"]
	if loser.Payout != 0 || loser.XP != 50 {
		t.Errorf("Loser should get payout 0 and 50 XP, got %d/%d", loser.Payout, loser.XP)
	}
	if winner.Winner != "alice" || loser.Winner != "alice" {
		t.Errorf("Both results should name the winner, got %s/%s", winner.Winner, loser.Winner)
	}
}

func TestSettlementStats(t *testing.T) {
	t.Parallel()

	capture := &captureNotifier{}
	runSettledBattle(t, capture)

	sum := capture.summaries[0]
	if sum.WinnerStats.DamageDealt != 20 || sum.WinnerStats.DamageTaken != 10 {
		t.Errorf("Winner stats should be 20 dealt / 10 taken, got %d/%d",
			sum.WinnerStats.DamageDealt, sum.WinnerStats.DamageTaken)
	}
	if sum.LoserStats.DamageDealt != 10 || sum.LoserStats.DamageTaken != 20 {
		t.Errorf("Loser stats should be 10 dealt / 20 taken, got %d/%d",
			sum.LoserStats.DamageDealt, sum.LoserStats.DamageTaken)
	}
	if sum.WinnerStats.Crits != 0 || sum.WinnerStats.Dodges != 0 {
		t.Errorf("Deterministic characters should record no crits or dodges, got %d/%d",
			sum.WinnerStats.Crits, sum.WinnerStats.Dodges)
	}
}

func TestSettlementRunsExactlyOnce(t *testing.T) {
	t.Parallel()

	capture := &captureNotifier{}
	s := runSettledBattle(t, capture)

	// Late signals against a completed session must not settle again.
	s.ExecuteRound("alice")
	s.ExecuteRound("bob")
	s.settle()

	if len(capture.summaries) != 1 {
		t.Errorf("Settlement must run exactly once, got %d summaries", len(capture.summaries))
	}
	if len(capture.results) != 2 {
		t.Errorf("Settlement must emit exactly two results, got %d", len(capture.results))
	}
}

func TestStatsAggregationAttribution(t *testing.T) {
	t.Parallel()

	rounds := []RoundResult{
		{
			Round: 1,
			Actions: []combat.Action{
				{Attacker: "alice", Defender: "bob", Damage: 40, Crit: true},
				{Attacker: "bob", Defender: "alice", Damage: 0, Dodged: true},
				{Attacker: "alice", Defender: "bob", Damage: 60, Crit: true},
			},
		},
		{
			Round: 2,
			Actions: []combat.Action{
				{Attacker: "bob", Defender: "alice", Damage: 25},
				{Attacker: "alice", Defender: "bob", Damage: 0, Crit: true, Dodged: true},
			},
		},
	}

	winnerStats, loserStats := aggregateStats(rounds, "alice")

	if winnerStats.DamageDealt != 100 {
		t.Errorf("Winner damage dealt should be 100, got %d", winnerStats.DamageDealt)
	}
	if winnerStats.DamageTaken != 25 {
		t.Errorf("Winner damage taken should be 25, got %d", winnerStats.DamageTaken)
	}
	if winnerStats.Crits != 3 {
		t.Errorf("All three crits belong to the winner even the dodged one, got %d", winnerStats.Crits)
	}
	if winnerStats.HighestCrit != 60 {
		t.Errorf("Highest crit should be 60, got %d", winnerStats.HighestCrit)
	}
	// alice dodged bob's hit in round 1; bob dodged alice's in round 2.
	if winnerStats.Dodges != 1 || loserStats.Dodges != 1 {
		t.Errorf("Each side should record one dodge, got %d/%d", winnerStats.Dodges, loserStats.Dodges)
	}
	if loserStats.DamageDealt != 25 || loserStats.DamageTaken != 100 {
		t.Errorf("Loser stats should be 25 dealt / 100 taken, got %d/%d",
			loserStats.DamageDealt, loserStats.DamageTaken)
	}
}
