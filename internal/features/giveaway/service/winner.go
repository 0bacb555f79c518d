package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	apperrors "giveaway-engine-backend/internal/common/errors"
	"giveaway-engine-backend/internal/common/logger"
	"giveaway-engine-backend/internal/common/metrics"
	"giveaway-engine-backend/internal/features/giveaway/models"
	"giveaway-engine-backend/internal/features/giveaway/repository"
)

type winnerService struct {
	repo    repository.GiveawayRepository
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func NewWinnerService(repo repository.GiveawayRepository, m *metrics.Metrics) WinnerService {
	return &winnerService{
		repo:    repo,
		metrics: m,
		log:     logger.With("winner_service"),
	}
}

// SelectWinner назначает победителя ровно один раз. Два уровня защиты:
// блокировка строки сериализует конкурентов, условный апдейт ловит тех,
// кто успел зафиксировать победителя между нашими чтением и записью.
func (s *winnerService) SelectWinner(ctx context.Context, giveawayID string) (*models.WinnerResult, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("begin winner transaction", err)
	}
	defer tx.Rollback()

	g, err := s.repo.GetByIDForUpdate(ctx, tx, giveawayID)
	if err != nil {
		if errors.Is(err, repository.ErrGiveawayNotFound) {
			return nil, apperrors.NewGiveawayNotFoundError(giveawayID)
		}
		return nil, apperrors.NewDatabaseError("lock giveaway", err)
	}
	if g.Status == models.GiveawayStatusCancelled {
		return nil, apperrors.New(apperrors.ErrCodeNotEligible, "cannot select a winner for a cancelled giveaway")
	}
	if g.IsDecided() {
		s.metrics.WinnerSelectConflicts.Inc()
		return nil, apperrors.New(apperrors.ErrCodeAlreadyDecided, "winner has already been selected").
			WithDetail("winner_id", *g.WinnerID)
	}

	winner, err := s.repo.PickRandomParticipantTx(ctx, tx, giveawayID)
	if err != nil {
		if errors.Is(err, repository.ErrNoParticipants) {
			// Розыгрыш остается открытым: транзакция откатится без изменений
			return nil, apperrors.New(apperrors.ErrCodeNoParticipants, "giveaway has no participants to select from")
		}
		return nil, apperrors.NewDatabaseError("pick random participant", err)
	}

	ok, err := s.repo.MarkEndedTx(ctx, tx, giveawayID, winner.ID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("mark giveaway ended", err)
	}
	if !ok {
		// Условие апдейта не прошло: победителя назначили в гонке
		s.metrics.WinnerSelectConflicts.Inc()
		return nil, apperrors.New(apperrors.ErrCodeAlreadyDecided, "winner has already been selected")
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewDatabaseError("commit winner transaction", err)
	}

	s.metrics.WinnersSelectedTotal.Inc()
	s.log.Info().
		Str("giveaway_id", giveawayID).
		Str("winner_id", winner.ID).
		Msg("winner selected")

	return &models.WinnerResult{
		GiveawayID:     giveawayID,
		WinnerID:       winner.ID,
		GuestName:      winner.GuestName,
		TelegramHandle: winner.TelegramHandle,
	}, nil
}
