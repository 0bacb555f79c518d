package service

import (
	"context"

	"giveaway-engine-backend/internal/features/giveaway/models"
)

// ParticipationService — допуск к участию и консультативная проверка
type ParticipationService interface {
	// Join — авторитетная точка допуска: рейт-лимиты, капча,
	// транзакционная запись участника
	Join(ctx context.Context, input *models.JoinInput) (*models.JoinResult, error)
	// CheckParticipation — консультативная проверка до отправки формы.
	// Fail-open: ошибка хранилища трактуется как "не участвовал".
	CheckParticipation(ctx context.Context, giveawayID, handle, fingerprint string) *models.ParticipationCheck
	GetByID(ctx context.Context, giveawayID string) (*models.Giveaway, error)
}

// WinnerService — выбор победителя, ровно один на розыгрыш
type WinnerService interface {
	SelectWinner(ctx context.Context, giveawayID string) (*models.WinnerResult, error)
}
