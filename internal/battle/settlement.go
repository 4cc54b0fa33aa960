package battle

import "math/bits"

// CombatStats aggregates one side's performance across a whole session.
type CombatStats struct {
	DamageDealt uint64 `json:"damage_dealt"`
	DamageTaken uint64 `json:"damage_taken"`
	Crits       uint32 `json:"crits"`
	Dodges      uint32 `json:"dodges"`
	HighestCrit uint64 `json:"highest_crit"`
}

// Result is the per-player settlement notification. The winner's copy
// carries the payout; the loser's carries zero and the smaller XP award.
type Result struct {
	SessionID string      `json:"session_id"`
	Recipient string      `json:"recipient"`
	Winner    string      `json:"winner"`
	Loser     string      `json:"loser"`
	Payout    Amount      `json:"payout"`
	XP        uint32      `json:"xp"`
	Stats     CombatStats `json:"stats"`
}

// Summary is the session-completed notification sent alongside the two
// per-player results.
type Summary struct {
	SessionID    string      `json:"session_id"`
	Winner       string      `json:"winner"`
	Loser        string      `json:"loser"`
	RoundsPlayed uint32      `json:"rounds_played"`
	TotalStake   Amount      `json:"total_stake"`
	Fee          Amount      `json:"fee"`
	Treasury     string      `json:"treasury"`
	WinnerStats  CombatStats `json:"winner_stats"`
	LoserStats   CombatStats `json:"loser_stats"`
}

// Notifier receives the outbound settlement messages for the session's
// coordinator. Delivery is fire-and-forget with at-least-once semantics
// assumed downstream; the session's terminal state never rolls back because
// a notification went undelivered.
type Notifier interface {
	BattleResult(Result)
	BattleCompleted(Summary)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) BattleResult(Result)     {}
func (NopNotifier) BattleCompleted(Summary) {}

// feeFor computes total*bps/10000 through a 128-bit intermediate so fee
// math cannot overflow regardless of stake size.
func feeFor(total Amount, bps uint16) Amount {
	hi, lo := bits.Mul64(uint64(total), uint64(bps))
	q, _ := bits.Div64(hi, lo, 10000)
	return Amount(q)
}

// settle computes payouts, fees, and aggregate stats, then emits the three
// outbound notifications. It runs exactly once per session; re-entry after
// completion is a no-op.
func (s *Session) settle() {
	if s.settled || s.status != StatusCompleted {
		return
	}
	s.settled = true

	winner := s.winner
	loser := s.parts[0].Owner()
	if loser == winner {
		loser = s.parts[1].Owner()
	}

	totalStake := saturatingAdd(s.parts[0].Stake, s.parts[1].Stake)
	fee := feeFor(totalStake, s.feeBPS)
	payout := totalStake - fee // fee <= totalStake since feeBPS <= 10000

	winnerStats, loserStats := aggregateStats(s.rounds, winner)

	s.notifier.BattleResult(Result{
		SessionID: s.id,
		Recipient: winner,
		Winner:    winner,
		Loser:     loser,
		Payout:    payout,
		XP:        WinnerXP,
		Stats:     winnerStats,
	})
	s.notifier.BattleResult(Result{
		SessionID: s.id,
		Recipient: loser,
		Winner:    winner,
		Loser:     loser,
		Payout:    0,
		XP:        LoserXP,
		Stats:     loserStats,
	})
	s.notifier.BattleCompleted(Summary{
		SessionID:    s.id,
		Winner:       winner,
		Loser:        loser,
		RoundsPlayed: s.round,
		TotalStake:   totalStake,
		Fee:          fee,
		Treasury:     s.treasury,
		WinnerStats:  winnerStats,
		LoserStats:   loserStats,
	})

	s.logger.Info("settlement emitted",
		"winner", winner, "payout", payout, "fee", fee, "total_stake", totalStake)
}

// aggregateStats attributes every recorded action to the side that dealt
// it and folds the results into winner/loser aggregates.
func aggregateStats(rounds []RoundResult, winner string) (CombatStats, CombatStats) {
	var winnerStats, loserStats CombatStats
	for _, round := range rounds {
		for _, action := range round.Actions {
			attacker, defender := &loserStats, &winnerStats
			if action.Attacker == winner {
				attacker, defender = &winnerStats, &loserStats
			}
			if !action.Dodged {
				attacker.DamageDealt += action.Damage
				defender.DamageTaken += action.Damage
			}
			if action.Crit {
				attacker.Crits++
				if action.Damage > attacker.HighestCrit {
					attacker.HighestCrit = action.Damage
				}
			}
			if action.Dodged {
				defender.Dodges++
			}
		}
	}
	return winnerStats, loserStats
}
