package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/arenaclash/arenaclash/internal/battle"
	"github.com/arenaclash/arenaclash/internal/combat"
	"github.com/arenaclash/arenaclash/internal/store"
)

// queuedPlayer is one matchmaking queue entry.
type queuedPlayer struct {
	owner     string
	stake     uint64
	character combat.CharacterSnapshot
}

// Coordinator runs matchmaking and relays battle events back to connected
// players. It is the single origin that creates sessions, and it receives
// the settlement notifications each session emits on completion.
type Coordinator struct {
	logger   *log.Logger
	sessions *SessionManager
	store    *store.Store
	server   *Server
	arenas   []ArenaConfig

	mu     sync.Mutex
	queues map[string][]queuedPlayer
}

// NewCoordinator constructs a coordinator over the given arenas. The store
// may be nil, which disables leaderboards and revenue accrual.
func NewCoordinator(sessions *SessionManager, st *store.Store, arenas []ArenaConfig, logger *log.Logger) *Coordinator {
	c := &Coordinator{
		logger:   logger.WithPrefix("coordinator"),
		sessions: sessions,
		store:    st,
		arenas:   arenas,
		queues:   make(map[string][]queuedPlayer),
	}
	sessions.SetNotifier(c)
	return c
}

// SetServer wires the WebSocket server used for outbound pushes.
func (c *Coordinator) SetServer(s *Server) {
	c.server = s
}

// arenaFor picks the arena whose stake range admits the given stake.
func (c *Coordinator) arenaFor(stake uint64) (*ArenaConfig, error) {
	for i := range c.arenas {
		a := &c.arenas[i]
		if stake >= uint64(a.MinStake) && stake <= uint64(a.MaxStake) {
			return a, nil
		}
	}
	return nil, fmt.Errorf("no arena accepts stake %d", stake)
}

// JoinQueue enqueues a player for matchmaking. When an opponent with a
// compatible stake is already waiting, a battle starts immediately and both
// players are notified. Returns the queue position and queue length.
func (c *Coordinator) JoinQueue(player string, stake uint64, character combat.CharacterSnapshot) (int, int, error) {
	if character.MaxHP == 0 {
		return 0, 0, fmt.Errorf("character has no hit points")
	}
	if character.MinDamage > character.MaxDamage {
		return 0, 0, fmt.Errorf("character damage range is inverted")
	}

	arena, err := c.arenaFor(stake)
	if err != nil {
		return 0, 0, err
	}

	c.mu.Lock()
	queue := c.queues[arena.Name]
	for _, waiting := range queue {
		if waiting.owner == player {
			c.mu.Unlock()
			return 0, 0, fmt.Errorf("player %s is already queued", player)
		}
	}
	if _, inBattle := c.sessions.SessionFor(player); inBattle {
		c.mu.Unlock()
		return 0, 0, fmt.Errorf("player %s is already in a battle", player)
	}

	entry := queuedPlayer{owner: player, stake: stake, character: character}
	if len(queue) == 0 {
		c.queues[arena.Name] = append(queue, entry)
		c.mu.Unlock()
		c.logger.Info("player queued", "player", player, "arena", arena.Name, "stake", stake)
		return 1, 1, nil
	}

	// Match against the head of the queue.
	opponent := queue[0]
	c.queues[arena.Name] = queue[1:]
	c.mu.Unlock()

	if err := c.startBattle(*arena, opponent, entry); err != nil {
		// Put the opponent back so a transient failure does not strand them.
		c.mu.Lock()
		c.queues[arena.Name] = append([]queuedPlayer{opponent}, c.queues[arena.Name]...)
		c.mu.Unlock()
		return 0, 0, err
	}
	return 0, 0, nil
}

// LeaveQueue removes a player from any queue they are waiting in.
func (c *Coordinator) LeaveQueue(player string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for arena, queue := range c.queues {
		for i, entry := range queue {
			if entry.owner == player {
				c.queues[arena] = append(queue[:i], queue[i+1:]...)
				c.logger.Info("player left queue", "player", player, "arena", arena)
				return
			}
		}
	}
}

// QueueLength returns the total number of waiting players across arenas.
func (c *Coordinator) QueueLength() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	for _, queue := range c.queues {
		total += len(queue)
	}
	return total
}

// startBattle creates the session for two matched players and pushes the
// battle_started notification to both.
func (c *Coordinator) startBattle(arena ArenaConfig, p1, p2 queuedPlayer) error {
	seed1 := battle.Seed{Owner: p1.owner, Home: arena.Name, Stake: battle.Amount(p1.stake), Character: p1.character}
	seed2 := battle.Seed{Owner: p2.owner, Home: arena.Name, Stake: battle.Amount(p2.stake), Character: p2.character}

	id, err := c.sessions.Create(context.Background(), arena, seed1, seed2)
	if err != nil {
		return fmt.Errorf("create battle: %w", err)
	}

	c.logger.Info("battle matched", "session", id, "p1", p1.owner, "p2", p2.owner, "arena", arena.Name)

	c.notifyStart(id, arena, p1, p2)
	c.notifyStart(id, arena, p2, p1)
	return nil
}

func (c *Coordinator) notifyStart(sessionID string, arena ArenaConfig, to, opponent queuedPlayer) {
	if c.server == nil {
		return
	}
	msg, err := NewMessage(MessageTypeBattleStarted, BattleStartedData{
		SessionID:  sessionID,
		Opponent:   opponent.owner,
		MaxRounds:  uint32(arena.MaxRounds),
		YourHP:     to.character.MaxHP,
		OpponentHP: opponent.character.MaxHP,
	})
	if err != nil {
		c.logger.Error("battle_started encode failed", "error", err)
		return
	}
	if err := c.server.SendToPlayer(to.owner, msg); err != nil {
		c.logger.Debug("battle_started push skipped", "player", to.owner, "error", err)
	}
}

// SubmitTurn forwards a turn submission to the player's session. When the
// submission completes a slot pair the resolved actions are pushed to both
// players.
func (c *Coordinator) SubmitTurn(player string, data SubmitTurnData) error {
	if _, ok := combat.ParseStance(data.Stance); !ok {
		return fmt.Errorf("unknown stance: %s", data.Stance)
	}
	prog, err := c.sessions.SubmitTurn(context.Background(),
		data.SessionID, player, data.Round, data.Slot, data.Stance, data.UseSpecial)
	if err != nil {
		return err
	}
	if len(prog.NewActions) > 0 {
		c.pushToParticipants(prog.Snapshot, MessageTypeTurnResult, TurnResultData{
			SessionID: data.SessionID,
			Round:     prog.Snapshot.Round,
			Actions:   prog.NewActions,
			HP:        participantHP(prog.Snapshot),
			Status:    prog.Snapshot.Status.String(),
		})
	}
	// A knockout closes the round without an execute_round exchange.
	for _, result := range prog.NewRounds {
		c.pushToParticipants(prog.Snapshot, MessageTypeRoundResult, RoundResultData{
			SessionID: data.SessionID,
			Result:    result,
		})
	}
	return nil
}

// ExecuteRound forwards a round-ready signal to the player's session and
// pushes any closed round to both players.
func (c *Coordinator) ExecuteRound(player, sessionID string) error {
	prog, err := c.sessions.ExecuteRound(context.Background(), sessionID, player)
	if err != nil {
		return err
	}
	for _, result := range prog.NewRounds {
		c.pushToParticipants(prog.Snapshot, MessageTypeRoundResult, RoundResultData{
			SessionID: sessionID,
			Result:    result,
		})
	}
	return nil
}

func participantHP(snap battle.Snapshot) [2]uint32 {
	var hp [2]uint32
	for i, p := range snap.Parts {
		if p != nil {
			hp[i] = p.Fighter.HP
		}
	}
	return hp
}

// pushToParticipants fans a message out to both sides of a session.
func (c *Coordinator) pushToParticipants(snap battle.Snapshot, msgType MessageType, data interface{}) {
	if c.server == nil {
		return
	}
	msg, err := NewMessage(msgType, data)
	if err != nil {
		c.logger.Error("push encode failed", "type", msgType, "error", err)
		return
	}
	for _, p := range snap.Parts {
		if p == nil {
			continue
		}
		if err := c.server.SendToPlayer(p.Owner(), msg); err != nil {
			c.logger.Debug("push skipped", "type", msgType, "player", p.Owner(), "error", err)
		}
	}
}

// SessionState returns the serialized state of a session.
func (c *Coordinator) SessionState(sessionID string) (battle.Snapshot, error) {
	return c.sessions.Snapshot(sessionID)
}

// Leaderboard returns the top players by wins, then XP.
func (c *Coordinator) Leaderboard(limit int) ([]store.PlayerStats, error) {
	if c.store == nil {
		return nil, fmt.Errorf("leaderboard unavailable: no store configured")
	}
	return c.store.TopPlayers(context.Background(), limit)
}

// BattleResult receives one side's settlement result: fold it into the
// player's persistent aggregates and push it to their connection.
func (c *Coordinator) BattleResult(res battle.Result) {
	if c.store != nil {
		if err := c.store.RecordResult(context.Background(), res); err != nil {
			c.logger.Error("stats aggregation failed", "player", res.Recipient, "error", err)
		}
	}
	if c.server == nil {
		return
	}
	msg, err := NewMessage(MessageTypeBattleResult, BattleResultData{
		SessionID: res.SessionID,
		Result:    res,
		Stats:     res.Stats,
	})
	if err != nil {
		c.logger.Error("battle_result encode failed", "error", err)
		return
	}
	if err := c.server.SendToPlayer(res.Recipient, msg); err != nil {
		c.logger.Debug("battle_result push skipped", "player", res.Recipient, "error", err)
	}
}

// BattleCompleted receives the session summary: accrue the platform fee and
// push the summary to both players.
func (c *Coordinator) BattleCompleted(sum battle.Summary) {
	if c.store != nil && sum.Fee > 0 {
		if err := c.store.AccrueFee(context.Background(), sum.Treasury, sum.Fee); err != nil {
			c.logger.Error("fee accrual failed", "treasury", sum.Treasury, "error", err)
		}
	}
	if c.server == nil {
		return
	}
	msg, err := NewMessage(MessageTypeBattleCompleted, BattleCompletedData{
		SessionID: sum.SessionID,
		Summary:   sum,
	})
	if err != nil {
		c.logger.Error("battle_completed encode failed", "error", err)
		return
	}
	for _, player := range []string{sum.Winner, sum.Loser} {
		if err := c.server.SendToPlayer(player, msg); err != nil {
			c.logger.Debug("battle_completed push skipped", "player", player, "error", err)
		}
	}
}
