package main

import (
	"fmt"

	"github.com/arenaclash/arenaclash/cmd/arenaclash/shared"
	"github.com/arenaclash/arenaclash/internal/battle"
	"github.com/arenaclash/arenaclash/internal/battlelog"
)

// ReplayCmd re-runs a recorded battle from its log and checks that every
// round resolves to the same HP totals, proving the engine is deterministic
// for that input.
type ReplayCmd struct {
	File  string `arg:"" help:"Battle log file (battle-<id>.jsonl)"`
	Debug bool   `kong:"help='Enable debug logging'"`
}

func (c *ReplayCmd) Run() error {
	logger := shared.SetupLogger(c.Debug)

	entries, err := battlelog.ReadLog(c.File)
	if err != nil {
		return err
	}
	if len(entries) == 0 || entries[0].Kind != battlelog.KindInitialized {
		return fmt.Errorf("log does not start with an initialization record")
	}

	init := entries[0]
	if init.Seeds[0] == nil || init.Seeds[1] == nil {
		return fmt.Errorf("initialization record is missing participants")
	}
	p1, p2 := *init.Seeds[0], *init.Seeds[1]

	session := battle.NewSession("replay", battle.Config{
		Coordinator: "replay",
		MaxRounds:   init.MaxRounds,
		Seed:        init.Seed,
	}, battle.NopNotifier{}, logger)
	if !session.Initialize("replay", p1, p2, init.FeeBPS, "treasury") {
		return fmt.Errorf("replayed session rejected initialization")
	}

	// Round records are only checkpoints; submissions drive the battle. A
	// round entry that the submissions alone did not close (no knockout)
	// was closed by both players signalling ready.
	var recorded []battle.RoundResult
	for _, e := range entries[1:] {
		switch e.Kind {
		case battlelog.KindSubmission:
			session.SubmitTurn(e.Caller, e.Round, e.Slot, e.Stance, e.Special)
		case battlelog.KindRound:
			if e.Result != nil {
				recorded = append(recorded, *e.Result)
			}
			if session.Status() == battle.StatusInProgress {
				session.ExecuteRound(p1.Owner)
				session.ExecuteRound(p2.Owner)
			}
		}
	}

	replayed := session.Rounds()
	if len(replayed) != len(recorded) {
		return fmt.Errorf("replay diverged: %d rounds recorded, %d replayed", len(recorded), len(replayed))
	}
	for i, want := range recorded {
		got := replayed[i]
		if got.Round != want.Round || got.HP != want.HP {
			return fmt.Errorf("replay diverged at round %d: recorded hp %v, replayed hp %v",
				want.Round, want.HP, got.HP)
		}
		if len(got.Actions) != len(want.Actions) {
			return fmt.Errorf("replay diverged at round %d: recorded %d actions, replayed %d",
				want.Round, len(want.Actions), len(got.Actions))
		}
		for j, action := range want.Actions {
			if got.Actions[j].Damage != action.Damage {
				return fmt.Errorf("replay diverged at round %d action %d: recorded damage %d, replayed %d",
					want.Round, j, action.Damage, got.Actions[j].Damage)
			}
		}
	}

	logger.Info("Replay verified",
		"rounds", len(replayed),
		"status", session.Status().String(),
		"winner", session.Winner())
	return nil
}
