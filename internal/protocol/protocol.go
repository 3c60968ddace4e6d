package protocol

const Version = "1.0"

// Server -> client message types.
const (
	TypeWelcome   = "welcome"
	TypeGameState = "gameState"
	TypeWin       = "win"
)

// Client -> server action types.
const (
	TypeMove          = "move"
	TypeMoveStart     = "moveStart"
	TypeMoveEnd       = "moveEnd"
	TypeOrbAction     = "orbAction"
	TypeThrowOrb      = "throwOrb"
	TypeSwitchTeam    = "switchTeam"
	TypeCreateBarrier = "createBarrier"
	TypeHitBarrier    = "hitBarrier"
)

// BaseMessage lets us route server frames by type before decoding them fully.
type BaseMessage struct {
	Type string `json:"type"`
}

func IsActionType(t string) bool {
	switch t {
	case TypeMove, TypeMoveStart, TypeMoveEnd,
		TypeOrbAction, TypeThrowOrb, TypeSwitchTeam,
		TypeCreateBarrier, TypeHitBarrier:
		return true
	}
	return false
}
