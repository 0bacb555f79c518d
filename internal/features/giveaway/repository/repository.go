package repository

import (
	"context"
	"errors"

	"giveaway-engine-backend/internal/features/giveaway/models"
)

var (
	ErrGiveawayNotFound = errors.New("giveaway not found")
	// Дубликаты: нарушение уникальности (giveaway_id, telegram_handle)
	// или (giveaway_id, fingerprint)
	ErrDuplicateHandle      = errors.New("participant with this telegram handle already exists")
	ErrDuplicateFingerprint = errors.New("participant with this fingerprint already exists")
	ErrNoParticipants       = errors.New("giveaway has no participants")
)

// Transaction — граница атомарности допуска и выбора победителя
type Transaction interface {
	Commit() error
	Rollback() error
}

// GiveawayRepository — транзакционные примитивы движка поверх хранилища.
// Вся межпроцессная взаимоисключаемость делегирована изоляции транзакций
// и условным апдейтам, никаких in-process локов на строки БД.
type GiveawayRepository interface {
	BeginTx(ctx context.Context) (Transaction, error)

	GetByID(ctx context.Context, id string) (*models.Giveaway, error)
	// GetByIDForUpdate читает строку розыгрыша с блокировкой (FOR UPDATE)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*models.Giveaway, error)

	// CountParticipantsTx считает участников внутри транзакции допуска:
	// count-then-insert обязаны жить в одной границе
	CountParticipantsTx(ctx context.Context, tx Transaction, giveawayID string) (int64, error)
	// FindDuplicateTx — авторитетная проверка дубликата по обоим сигналам.
	// Возвращает метод совпадения (handle | fingerprint) или пустую строку.
	FindDuplicateTx(ctx context.Context, tx Transaction, giveawayID, handle, fingerprint string) (string, error)
	InsertParticipantTx(ctx context.Context, tx Transaction, p *models.Participant) error

	// PickRandomParticipantTx выбирает участника равномерно случайно
	PickRandomParticipantTx(ctx context.Context, tx Transaction, giveawayID string) (*models.Participant, error)
	// MarkEndedTx — условный апдейт: фиксирует победителя и переводит
	// розыгрыш в ended, только если победитель еще не назначен и розыгрыш
	// не отменен. Возвращает false, если условие не прошло.
	MarkEndedTx(ctx context.Context, tx Transaction, giveawayID, winnerID string) (bool, error)

	// FindParticipant — консультативный поиск вне транзакции (для UX)
	FindParticipant(ctx context.Context, giveawayID, handle, fingerprint string) (string, error)
	GetParticipantsCount(ctx context.Context, giveawayID string) (int64, error)

	// ListExpiredOpen возвращает id открытых розыгрышей с истекшим дедлайном
	ListExpiredOpen(ctx context.Context, limit int) ([]string, error)
	// CloseExpired закрывает просроченный розыгрыш без победителя.
	// Идемпотентно: false, если кто-то закрыл раньше.
	CloseExpired(ctx context.Context, giveawayID string) (bool, error)

	Create(ctx context.Context, giveaway *models.Giveaway) error
}
