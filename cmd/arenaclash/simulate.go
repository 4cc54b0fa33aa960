package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	rand "math/rand/v2"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/arenaclash/arenaclash/cmd/arenaclash/shared"
	"github.com/arenaclash/arenaclash/internal/battle"
	"github.com/arenaclash/arenaclash/internal/combat"
	"github.com/arenaclash/arenaclash/internal/randutil"
)

// SimulateCmd runs battles in-process with random stances and prints a
// balance report, useful for eyeballing tuning changes.
type SimulateCmd struct {
	Battles   int    `kong:"default='100',help='Number of battles to simulate'"`
	Seed      *int64 `kong:"help='Deterministic seed for the whole run (optional)'"`
	MaxRounds int    `kong:"default='10',help='Round cap per battle'"`
	Stake     uint64 `kong:"default='1000',help='Stake per player'"`
	FeeBPS    int    `kong:"default='250',help='Platform fee in basis points'"`
	Workers   int    `kong:"default='8',help='Concurrent battles'"`
	Debug     bool   `kong:"help='Enable debug logging'"`
}

var stanceNames = []string{"balanced", "aggressive", "defensive", "berserker", "counter"}

// summaryCollector captures settlement summaries from simulated battles.
type summaryCollector struct {
	mu        sync.Mutex
	summaries []battle.Summary
}

func (sc *summaryCollector) BattleResult(battle.Result) {}

func (sc *summaryCollector) BattleCompleted(sum battle.Summary) {
	sc.mu.Lock()
	sc.summaries = append(sc.summaries, sum)
	sc.mu.Unlock()
}

func simulatedCharacter(class combat.CharacterClass, tokenID string) combat.CharacterSnapshot {
	return combat.CharacterSnapshot{
		TokenID:        tokenID,
		Class:          class,
		Level:          5,
		MaxHP:          500,
		MinDamage:      20,
		MaxDamage:      40,
		CritChance:     1500,
		CritMultiplier: 20000,
		DodgeChance:    1000,
		Defense:        10,
	}
}

func (c *SimulateCmd) Run() error {
	logger := shared.SetupLogger(c.Debug)

	seed := time.Now().UnixNano()
	if c.Seed != nil {
		seed = *c.Seed
	}
	logger.Info("Simulating battles", "battles", c.Battles, "seed", seed, "workers", c.Workers)

	collector := &summaryCollector{}
	classes := []combat.CharacterClass{
		combat.ClassWarrior, combat.ClassAssassin, combat.ClassMage,
		combat.ClassTank, combat.ClassTrickster,
	}

	// Per-session logging drowns the report at scale; keep it for debug runs.
	sessionLogger := logger
	if !c.Debug {
		sessionLogger = log.New(io.Discard)
	}

	var g errgroup.Group
	g.SetLimit(c.Workers)

	start := time.Now()
	for i := 0; i < c.Battles; i++ {
		battleSeed := seed + int64(i)
		g.Go(func() error {
			return c.runOne(battleSeed, classes, collector, sessionLogger)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	c.printReport(collector.summaries, elapsed)
	return nil
}

// runOne plays a single battle to completion with uniformly random stances.
func (c *SimulateCmd) runOne(seed int64, classes []combat.CharacterClass, collector *summaryCollector, logger *log.Logger) error {
	script := randutil.New(seed)

	p1 := battle.Seed{
		Owner: "alice", Home: "sim", Stake: battle.Amount(c.Stake),
		Character: simulatedCharacter(classes[script.IntN(len(classes))], "sim-token-1"),
	}
	p2 := battle.Seed{
		Owner: "bob", Home: "sim", Stake: battle.Amount(c.Stake),
		Character: simulatedCharacter(classes[script.IntN(len(classes))], "sim-token-2"),
	}

	session := battle.NewSession(fmt.Sprintf("sim-%d", seed), battle.Config{
		Coordinator: "simulator",
		MaxRounds:   uint32(c.MaxRounds),
		Seed:        seed,
	}, collector, logger)

	if !session.Initialize("simulator", p1, p2, uint16(c.FeeBPS), "treasury") {
		return fmt.Errorf("battle %d failed to initialize", seed)
	}

	for session.Status() == battle.StatusInProgress {
		round := session.Round()
		for slot := uint8(0); slot < battle.TurnSlots && session.Status() == battle.StatusInProgress; slot++ {
			session.SubmitTurn("alice", round, slot, randomStance(script), script.IntN(4) == 0)
			session.SubmitTurn("bob", round, slot, randomStance(script), script.IntN(4) == 0)
		}
		if session.Status() != battle.StatusInProgress {
			break
		}
		session.ExecuteRound("alice")
		session.ExecuteRound("bob")
		if session.Round() == round && session.Status() == battle.StatusInProgress {
			logger.Warn("battle stalled", "seed", seed, "round", round)
			break
		}
	}
	return nil
}

func randomStance(r *rand.Rand) string {
	return stanceNames[r.IntN(len(stanceNames))]
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	rowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

func (c *SimulateCmd) printReport(summaries []battle.Summary, elapsed time.Duration) {
	var (
		wins        = map[string]int{}
		totalRounds uint64
		totalFees   battle.Amount
		knockouts   int
	)
	for _, sum := range summaries {
		wins[sum.Winner]++
		totalRounds += uint64(sum.RoundsPlayed)
		totalFees += sum.Fee
		if sum.RoundsPlayed < uint32(c.MaxRounds) {
			knockouts++
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Battle Simulation Report"))
	b.WriteString("\n")
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-12s %8s", "PLAYER", "WINS")))
	b.WriteString("\n")
	for _, player := range []string{"alice", "bob"} {
		b.WriteString(rowStyle.Render(fmt.Sprintf("%-12s %8d", player, wins[player])))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if n := len(summaries); n > 0 {
		b.WriteString(rowStyle.Render(fmt.Sprintf("battles: %d  knockouts: %d  avg rounds: %.1f  fees: %d",
			n, knockouts, float64(totalRounds)/float64(n), totalFees)))
		b.WriteString("\n")
	}
	b.WriteString(faintStyle.Render(fmt.Sprintf("completed in %s", elapsed.Round(time.Millisecond))))

	fmt.Println(b.String())
}
