package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
// These are used for client-server communication protocol
const (
	// Client to server messages
	MessageTypeAuth         MessageType = "auth"
	MessageTypeJoinQueue    MessageType = "join_queue"
	MessageTypeLeaveQueue   MessageType = "leave_queue"
	MessageTypeSubmitTurn   MessageType = "submit_turn"
	MessageTypeExecuteRound MessageType = "execute_round"
	MessageTypeGetState     MessageType = "get_state"
	MessageTypeLeaderboard  MessageType = "leaderboard"

	// Server to client messages
	MessageTypeError           MessageType = "error"
	MessageTypeAuthResponse    MessageType = "auth_response"
	MessageTypeQueueUpdate     MessageType = "queue_update"
	MessageTypeBattleStarted   MessageType = "battle_started"
	MessageTypeBattleState     MessageType = "battle_state"
	MessageTypeTurnResult      MessageType = "turn_result"
	MessageTypeRoundResult     MessageType = "round_result"
	MessageTypeBattleResult    MessageType = "battle_result"
	MessageTypeBattleCompleted MessageType = "battle_completed"
	MessageTypeLeaderboardData MessageType = "leaderboard_data"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
