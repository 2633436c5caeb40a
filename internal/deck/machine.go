// Package deck holds the card session state machine. Every transition is a
// pure function from one types.SessionState to the next; callers own the
// state value and the question collection it indexes into.
package deck

import (
	"errors"
	"strings"

	"kartubicara/internal/types"
)

const (
	// RoundLength is the number of cards in one round.
	RoundLength = 10
	// MinRoomCodeLength is the shortest room code JoinRoom accepts.
	MinRoomCodeLength = 4
)

var ErrMultiplayerUnavailable = errors.New("multiplayer is not available yet")

// ErrUnknownCategory is returned by SelectCategory for ids outside CategoryIDs.
var ErrUnknownCategory = errors.New("unknown category")

// NewState returns the state of a fresh visitor: landing screen, solo mode,
// couples category.
func NewState() types.SessionState {
	return types.SessionState{
		Screen:     types.ScreenLanding,
		Mode:       types.ModeSolo,
		Category:   types.CategoryCouples,
		PlayerTurn: true,
	}
}

// moveTo changes the screen and bumps the epoch so that results of requests
// issued on the previous screen can be recognised as stale.
func moveTo(s types.SessionState, screen types.Screen) types.SessionState {
	s.Screen = screen
	s.Epoch++
	return s
}

func resetRound(s types.SessionState) types.SessionState {
	s.CardsPlayed = 0
	s.CardIndex = 0
	s.Flipped = false
	return s
}

// SelectCategory picks the category used for the next solo round.
func SelectCategory(s types.SessionState, c types.Category) (types.SessionState, error) {
	if !c.Valid() {
		return s, ErrUnknownCategory
	}
	s.Category = c
	return s, nil
}

// RequestStart records the chosen mode. For multiplayer it either enters the
// room setup screen or, when multiplayer is disabled, leaves the state as it
// was and reports ErrMultiplayerUnavailable. For solo the state is only
// marked; BeginRound is applied once the question batch has arrived.
func RequestStart(s types.SessionState, mode types.Mode, multiplayerEnabled bool) (types.SessionState, error) {
	if mode == types.ModeMultiplayer {
		if !multiplayerEnabled {
			return s, ErrMultiplayerUnavailable
		}
		s.Mode = types.ModeMultiplayer
		s.PlayerTurn = true
		return moveTo(s, types.ScreenMultiplayerSetup), nil
	}
	s.Mode = types.ModeSolo
	return s, nil
}

// BeginRound enters the game screen with fresh round counters.
func BeginRound(s types.SessionState) types.SessionState {
	s = resetRound(s)
	return moveTo(s, types.ScreenGame)
}

// Flip toggles the current card. Outside the game screen it does nothing.
func Flip(s types.SessionState) types.SessionState {
	if s.Screen != types.ScreenGame {
		return s
	}
	s.Flipped = !s.Flipped
	return s
}

// Next counts the current card as played. The tenth card ends the round;
// otherwise the index advances cyclically over questionCount cards.
func Next(s types.SessionState, questionCount int) types.SessionState {
	if s.Screen != types.ScreenGame {
		return s
	}
	s.CardsPlayed++
	if s.CardsPlayed >= RoundLength {
		return moveTo(s, types.ScreenSessionEnd)
	}
	if questionCount > 0 {
		s.CardIndex = (s.CardIndex + 1) % questionCount
	} else {
		s.CardIndex = 0
	}
	s.Flipped = false
	if s.Mode == types.ModeMultiplayer {
		s.PlayerTurn = !s.PlayerTurn
	}
	return s
}

// CreateRoom stores a freshly generated room code. The game starts later,
// through RoomReady.
func CreateRoom(s types.SessionState, code string) types.SessionState {
	if s.Screen != types.ScreenMultiplayerSetup {
		return s
	}
	s.RoomID = code
	return s
}

// RoomReady starts the round for a created room, as long as the session is
// still waiting in setup for that same room.
func RoomReady(s types.SessionState, code string) (types.SessionState, bool) {
	if s.Screen != types.ScreenMultiplayerSetup || s.RoomID != code {
		return s, false
	}
	return BeginRound(s), true
}

// NormalizeRoomCode uppercases and trims a typed room code.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// JoinRoom enters the game when the code is at least MinRoomCodeLength long.
// Shorter codes leave the state untouched.
func JoinRoom(s types.SessionState, code string) (types.SessionState, bool) {
	if s.Screen != types.ScreenMultiplayerSetup {
		return s, false
	}
	code = NormalizeRoomCode(code)
	if len(code) < MinRoomCodeLength {
		return s, false
	}
	s.RoomID = code
	return BeginRound(s), true
}

// PlayAgain clears the round and the room and returns to the landing screen.
func PlayAgain(s types.SessionState) types.SessionState {
	s = resetRound(s)
	s.RoomID = ""
	s.PlayerTurn = true
	return moveTo(s, types.ScreenLanding)
}

// EndSession abandons the running round. The caller is expected to clear
// the question collection as well.
func EndSession(s types.SessionState) types.SessionState {
	return moveTo(s, types.ScreenLanding)
}

// OpenManage switches to the question management view.
func OpenManage(s types.SessionState) types.SessionState {
	if s.Screen != types.ScreenLanding {
		return s
	}
	return moveTo(s, types.ScreenManageQuestions)
}

// Back returns from setup or management to the landing screen.
func Back(s types.SessionState) types.SessionState {
	switch s.Screen {
	case types.ScreenMultiplayerSetup, types.ScreenManageQuestions:
		return moveTo(s, types.ScreenLanding)
	}
	return s
}
