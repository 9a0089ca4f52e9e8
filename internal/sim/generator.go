package sim

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

// Constants for random number generation.
const (
	profileDivisor = 8
)

// Score ranges per player profile, in pipes passed.
const (
	casualMin    = 0
	casualRange  = 15
	regularMin   = 10
	regularRange = 25
	skilledMin   = 25
	skilledRange = 30
	eliteMin     = 50
	eliteRange   = 60
)

// Profile cases.
const (
	caseCasual  = 0
	caseRegular = 1
	caseSkilled = 2
	caseElite   = 3
)

// player is one simulated participant with a fixed skill profile.
type player struct {
	id      string
	profile int64
}

// newRoster builds count players with randomly assigned profiles. Casual and
// regular profiles dominate; elite players are rare, so most days have a
// clear high scorer with a spread below the qualification threshold.
func newRoster(count int) []player {
	roster := make([]player, count)
	for i := range roster {
		n, _ := rand.Int(rand.Reader, big.NewInt(profileDivisor))
		profile := n.Int64()
		// Fold the upper half of the range back onto the common profiles.
		if profile > caseElite {
			profile = profile % 2
		}
		roster[i] = player{
			id:      "player_" + uuid.New().String(),
			profile: profile,
		}
	}
	return roster
}

// nextScore draws one game run's score from the player's profile.
func (p player) nextScore() uint64 {
	switch p.profile {
	case caseCasual:
		return randomScore(casualMin, casualRange)
	case caseRegular:
		return randomScore(regularMin, regularRange)
	case caseSkilled:
		return randomScore(skilledMin, skilledRange)
	case caseElite:
		return randomScore(eliteMin, eliteRange)
	default:
		return randomScore(casualMin, casualRange)
	}
}

func randomScore(min, span uint64) uint64 {
	n, _ := rand.Int(rand.Reader, new(big.Int).SetUint64(span+1))
	return min + n.Uint64()
}
