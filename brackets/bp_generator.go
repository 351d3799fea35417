package brackets

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/Dosada05/bp-tabulation/models"
)

var ErrNotEnoughTeams = errors.New("not enough teams to generate a BP tournament")

// ShuffleFunc has the signature of rand.Shuffle.
type ShuffleFunc func(n int, swap func(i, j int))

// BPGenerator builds British Parliamentary draws: rooms of four teams with
// benches OG, OO, CG, CO.
//
// Round 1 is drawn from a uniform shuffle. Later preliminary rounds keep the
// submission order; benches rotate one step per round so a team does not sit
// on the same bench twice in a row. When the pool is not a multiple of four
// the trailing teams sit the round out, and the window rotates so the same
// teams do not sit out every round. Semifinal and final rounds are provisional
// draws over the head of the submission order; the stage controller redraws
// them from standings on advancement.
type BPGenerator struct {
	shuffle ShuffleFunc
}

// NewBPGenerator returns a generator. A nil shuffle uses math/rand.
func NewBPGenerator(shuffle ShuffleFunc) TournamentGenerator {
	if shuffle == nil {
		shuffle = rand.Shuffle
	}
	return &BPGenerator{shuffle: shuffle}
}

func (g *BPGenerator) GetName() string {
	return "BritishParliamentary"
}

func (g *BPGenerator) GenerateTournament(ctx context.Context, params GenerateTournamentParams) ([]*PlannedRound, error) {
	f := params.Format
	if err := f.Validate(); err != nil {
		return nil, err
	}
	n := len(params.Teams)
	if n < f.MinTeams {
		return nil, fmt.Errorf("%w: found %d, minimum %d", ErrNotEnoughTeams, n, f.MinTeams)
	}

	submission := make([]int, n)
	for i, t := range params.Teams {
		submission[i] = t.ID
	}

	rounds := make([]*PlannedRound, 0, f.PreliminaryRounds+f.SemifinalRounds+f.FinalRounds)

	for r := 1; r <= f.PreliminaryRounds; r++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var pool []int
		if r == 1 {
			pool = append([]int(nil), submission...)
			g.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		} else {
			pool = rotate(submission, (r-1)*(n%4))
		}
		rounds = append(rounds, drawRound(models.StagePreliminary, r, pool))
	}

	if n >= f.MinTeamsForSemifinal {
		pool := head(submission, f.SemifinalCut)
		for r := 1; r <= f.SemifinalRounds; r++ {
			rounds = append(rounds, drawRound(models.StageSemifinal, r, pool))
		}
	}

	pool := head(submission, f.FinalCut)
	for r := 1; r <= f.FinalRounds; r++ {
		rounds = append(rounds, drawRound(models.StageFinal, r, pool))
	}

	return rounds, nil
}

// drawRound splits pool into consecutive rooms of four. Benches rotate by
// roundNumber-1 so bench assignment changes from round to round.
func drawRound(stage models.Stage, roundNumber int, pool []int) *PlannedRound {
	usable := len(pool) - len(pool)%4
	round := &PlannedRound{
		Stage:       stage,
		RoundNumber: roundNumber,
		Session:     1,
		Rooms:       make([]PlannedRoom, 0, usable/4),
		SittingOut:  append([]int{}, pool[usable:]...),
	}
	shift := (roundNumber - 1) % 4
	for i := 0; i < usable; i += 4 {
		var benches [4]int
		for slot := 0; slot < 4; slot++ {
			benches[slot] = pool[i+(slot+shift)%4]
		}
		round.Rooms = append(round.Rooms, PlannedRoom{MatchNumber: i/4 + 1, TeamIDs: benches})
	}
	return round
}

// head returns the first min(limit, len) ids, truncated to a multiple of four.
func head(ids []int, limit int) []int {
	n := limit
	if len(ids) < n {
		n = len(ids)
	}
	n -= n % 4
	return append([]int(nil), ids[:n]...)
}

func rotate(ids []int, k int) []int {
	out := make([]int, len(ids))
	if len(ids) == 0 {
		return out
	}
	k %= len(ids)
	copy(out, ids[k:])
	copy(out[len(ids)-k:], ids[:k])
	return out
}

// SeededRound lays block-seeded rooms out for one elimination round. Round 1
// keeps the seeded bench order; later rounds rotate benches like the
// preliminary draw.
func SeededRound(stage models.Stage, roundNumber int, rooms [][4]int) *PlannedRound {
	pool := make([]int, 0, 4*len(rooms))
	for _, r := range rooms {
		pool = append(pool, r[:]...)
	}
	return drawRound(stage, roundNumber, pool)
}

var _ TournamentGenerator = (*BPGenerator)(nil)
