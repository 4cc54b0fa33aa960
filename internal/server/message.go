package server

import (
	"encoding/json"
	"time"

	"github.com/arenaclash/arenaclash/internal/battle"
	"github.com/arenaclash/arenaclash/internal/combat"
	"github.com/arenaclash/arenaclash/internal/store"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type AuthData struct {
	PlayerName string `json:"playerName"`
	Token      string `json:"token,omitempty"`
}

type JoinQueueData struct {
	Stake     uint64                   `json:"stake"`
	Character combat.CharacterSnapshot `json:"character"`
}

type LeaveQueueData struct{}

type SubmitTurnData struct {
	SessionID  string `json:"sessionId"`
	Round      uint32 `json:"round"`
	Slot       uint8  `json:"slot"`
	Stance     string `json:"stance"`
	UseSpecial bool   `json:"useSpecial"`
}

type ExecuteRoundData struct {
	SessionID string `json:"sessionId"`
}

type GetStateData struct {
	SessionID string `json:"sessionId"`
}

type LeaderboardRequestData struct {
	Limit int `json:"limit,omitempty"`
}

// Server → Client Messages

type AuthResponseData struct {
	Success  bool   `json:"success"`
	PlayerID string `json:"playerId,omitempty"`
	Error    string `json:"error,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type QueueUpdateData struct {
	Position int    `json:"position"`
	Waiting  int    `json:"waiting"`
	Stake    uint64 `json:"stake"`
}

type BattleStartedData struct {
	SessionID  string `json:"sessionId"`
	Opponent   string `json:"opponent"`
	MaxRounds  uint32 `json:"maxRounds"`
	YourHP     uint32 `json:"yourHp"`
	OpponentHP uint32 `json:"opponentHp"`
}

type BattleStateData struct {
	SessionID string          `json:"sessionId"`
	State     battle.Snapshot `json:"state"`
}

type TurnResultData struct {
	SessionID string          `json:"sessionId"`
	Round     uint32          `json:"round"`
	Actions   []combat.Action `json:"actions"`
	HP        [2]uint32       `json:"hp"`
	Status    string          `json:"status"`
}

type RoundResultData struct {
	SessionID string             `json:"sessionId"`
	Result    battle.RoundResult `json:"result"`
}

type BattleResultData struct {
	SessionID string             `json:"sessionId"`
	Result    battle.Result      `json:"result"`
	Stats     battle.CombatStats `json:"stats"`
}

type BattleCompletedData struct {
	SessionID string         `json:"sessionId"`
	Summary   battle.Summary `json:"summary"`
}

type LeaderboardResponseData struct {
	Players []store.PlayerStats `json:"players"`
}
