package deck

import (
	"math/rand/v2"
	"strings"
)

const (
	RoomCodeLength = 6
	roomAlphabet   = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// NewRoomCode returns a random uppercase base-36 code. Codes are cosmetic:
// nothing checks them for uniqueness. A nil r uses the global source.
func NewRoomCode(r *rand.Rand) string {
	intN := rand.IntN
	if r != nil {
		intN = r.IntN
	}
	var b strings.Builder
	b.Grow(RoomCodeLength)
	for range RoomCodeLength {
		b.WriteByte(roomAlphabet[intN(len(roomAlphabet))])
	}
	return b.String()
}
