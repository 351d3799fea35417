package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/bp-tabulation/models"
	"github.com/Dosada05/bp-tabulation/storage"
	"github.com/google/uuid"
)

// ResultsArchive is the JSON document written when a competition completes.
type ResultsArchive struct {
	ArchiveID   string       `json:"archive_id"`
	Competition int          `json:"competition_id"`
	Stage       models.Stage `json:"stage"`
	Final       *Leaderboard `json:"final_standings"`
	Overall     *Leaderboard `json:"overall_standings"`
	ArchivedAt  time.Time    `json:"archived_at"`
}

type ArchiveService interface {
	ArchiveCompetition(ctx context.Context, competitionID int) (*storage.PutResult, error)
}

type archiveService struct {
	store     storage.ObjectStore
	standings StandingsService
	logger    *slog.Logger
	now       func() time.Time
}

// NewArchiveService returns an archive writer. A nil store disables archiving.
func NewArchiveService(store storage.ObjectStore, standings StandingsService, logger *slog.Logger) ArchiveService {
	return &archiveService{store: store, standings: standings, logger: logger, now: time.Now}
}

func archiveKey(competitionID int, id uuid.UUID) string {
	return fmt.Sprintf("archives/competition_%d/%s.json", competitionID, id)
}

func (s *archiveService) ArchiveCompetition(ctx context.Context, competitionID int) (*storage.PutResult, error) {
	if s.store == nil {
		return nil, ErrArchiveDisabled
	}

	final, err := s.standings.ListStandings(ctx, competitionID, models.ScopeElimination)
	if err != nil {
		return nil, err
	}
	overall, err := s.standings.ListStandings(ctx, competitionID, models.ScopeOverall)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	doc := ResultsArchive{
		ArchiveID:   id.String(),
		Competition: competitionID,
		Stage:       final.Stage,
		Final:       final,
		Overall:     overall,
		ArchivedAt:  s.now().UTC(),
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode archive: %w", err)
	}

	result, err := s.store.Put(ctx, archiveKey(competitionID, id), "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "competition results archived",
		slog.Int("competition_id", competitionID), slog.String("key", result.Key))
	return result, nil
}
