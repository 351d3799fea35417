package services

import (
	"sync"

	"golang.org/x/sync/semaphore"
)

// CompetitionGuard serialises destructive operations (generation, stage
// advancement and standings rebuilds) per competition inside this process. The database advisory
// lock covers other processes.
type CompetitionGuard struct {
	mu   sync.Mutex
	sems map[int]*semaphore.Weighted
}

func NewCompetitionGuard() *CompetitionGuard {
	return &CompetitionGuard{sems: make(map[int]*semaphore.Weighted)}
}

// TryAcquire fails fast with ErrConcurrentRegeneration when the competition is busy.
func (g *CompetitionGuard) TryAcquire(competitionID int) (release func(), err error) {
	g.mu.Lock()
	sem, ok := g.sems[competitionID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		g.sems[competitionID] = sem
	}
	g.mu.Unlock()

	if !sem.TryAcquire(1) {
		return nil, ErrConcurrentRegeneration
	}
	return func() { sem.Release(1) }, nil
}
