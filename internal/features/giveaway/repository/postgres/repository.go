package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"giveaway-engine-backend/internal/features/giveaway/models"
	"giveaway-engine-backend/internal/features/giveaway/repository"
)

// Имена уникальных индексов participants — защита в глубину на случай,
// если уровень изоляции пропустит гонку мимо проверки в транзакции
const (
	handleUniqueConstraint      = "participants_giveaway_handle_key"
	fingerprintUniqueConstraint = "participants_giveaway_fingerprint_key"
)

type postgresRepository struct {
	db *sql.DB
}

type postgresTransaction struct {
	tx *sql.Tx
}

func (t *postgresTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *postgresTransaction) Rollback() error {
	return t.tx.Rollback()
}

func NewPostgresRepository(db *sql.DB) repository.GiveawayRepository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) BeginTx(ctx context.Context) (repository.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &postgresTransaction{tx: tx}, nil
}

func unwrapTx(tx repository.Transaction) (*sql.Tx, error) {
	postgresTx, ok := tx.(*postgresTransaction)
	if !ok {
		return nil, fmt.Errorf("invalid transaction type")
	}
	return postgresTx.tx, nil
}

const giveawayColumns = `g.id, g.title, g.status, g.start_date, g.end_date,
		COALESCE(g.max_participants, 0), g.allow_guests, g.winner_id, g.created_at, g.updated_at`

func scanGiveaway(row *sql.Row) (*models.Giveaway, error) {
	var giveaway models.Giveaway
	err := row.Scan(
		&giveaway.ID, &giveaway.Title, &giveaway.Status, &giveaway.StartDate,
		&giveaway.EndDate, &giveaway.MaxParticipants, &giveaway.AllowGuests,
		&giveaway.WinnerID, &giveaway.CreatedAt, &giveaway.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrGiveawayNotFound
		}
		return nil, fmt.Errorf("failed to get giveaway: %w", err)
	}
	return &giveaway, nil
}

// GetByID получает розыгрыш по ID
func (r *postgresRepository) GetByID(ctx context.Context, id string) (*models.Giveaway, error) {
	query := fmt.Sprintf(`SELECT %s FROM giveaways g WHERE g.id = $1`, giveawayColumns)
	return scanGiveaway(r.db.QueryRowContext(ctx, query, id))
}

// GetByIDForUpdate получает розыгрыш по ID с блокировкой строки
func (r *postgresRepository) GetByIDForUpdate(ctx context.Context, tx repository.Transaction, id string) (*models.Giveaway, error) {
	sqlTx, err := unwrapTx(tx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM giveaways g WHERE g.id = $1 FOR UPDATE`, giveawayColumns)
	return scanGiveaway(sqlTx.QueryRowContext(ctx, query, id))
}

// CountParticipantsTx считает участников внутри транзакции
func (r *postgresRepository) CountParticipantsTx(ctx context.Context, tx repository.Transaction, giveawayID string) (int64, error) {
	sqlTx, err := unwrapTx(tx)
	if err != nil {
		return 0, err
	}

	var count int64
	err = sqlTx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM participants WHERE giveaway_id = $1", giveawayID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return count, nil
}

// FindDuplicateTx — авторитетная проверка дубликата внутри транзакции
func (r *postgresRepository) FindDuplicateTx(ctx context.Context, tx repository.Transaction, giveawayID, handle, fingerprint string) (string, error) {
	sqlTx, err := unwrapTx(tx)
	if err != nil {
		return "", err
	}
	return findDuplicate(ctx, sqlTx, giveawayID, handle, fingerprint)
}

// FindParticipant — консультативная проверка вне транзакции
func (r *postgresRepository) FindParticipant(ctx context.Context, giveawayID, handle, fingerprint string) (string, error) {
	return findDuplicate(ctx, r.db, giveawayID, handle, fingerprint)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func findDuplicate(ctx context.Context, q querier, giveawayID, handle, fingerprint string) (string, error) {
	// Handle проверяется первым: его совпадение дает более понятное
	// пользователю сообщение
	if handle != "" {
		var id string
		err := q.QueryRowContext(ctx,
			"SELECT id FROM participants WHERE giveaway_id = $1 AND telegram_handle = $2",
			giveawayID, handle).Scan(&id)
		if err == nil {
			return models.DuplicateByHandle, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("failed to check handle duplicate: %w", err)
		}
	}

	if fingerprint != "" {
		var id string
		err := q.QueryRowContext(ctx,
			"SELECT id FROM participants WHERE giveaway_id = $1 AND fingerprint = $2",
			giveawayID, fingerprint).Scan(&id)
		if err == nil {
			return models.DuplicateByFingerprint, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("failed to check fingerprint duplicate: %w", err)
		}
	}

	return "", nil
}

// InsertParticipantTx вставляет участника внутри транзакции допуска.
// Нарушение уникального индекса переводится в типизированный дубликат.
func (r *postgresRepository) InsertParticipantTx(ctx context.Context, tx repository.Transaction, p *models.Participant) error {
	sqlTx, err := unwrapTx(tx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO participants (id, giveaway_id, guest_name, telegram_handle, fingerprint, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = sqlTx.ExecContext(ctx, query,
		p.ID, p.GiveawayID, p.GuestName, p.TelegramHandle, p.Fingerprint, p.IPAddress, p.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			switch pqErr.Constraint {
			case fingerprintUniqueConstraint:
				return repository.ErrDuplicateFingerprint
			case handleUniqueConstraint:
				return repository.ErrDuplicateHandle
			}
			// Неизвестный уникальный индекс: считаем дубликатом по handle,
			// чтобы не пропустить повторную заявку
			if strings.Contains(pqErr.Constraint, "fingerprint") {
				return repository.ErrDuplicateFingerprint
			}
			return repository.ErrDuplicateHandle
		}
		return fmt.Errorf("failed to insert participant: %w", err)
	}

	return nil
}

// PickRandomParticipantTx выбирает одного участника равномерно случайно.
// Случайность на стороне БД: ORDER BY random() по участникам одного
// розыгрыша, выборка зафиксирована блокировкой строки розыгрыша.
func (r *postgresRepository) PickRandomParticipantTx(ctx context.Context, tx repository.Transaction, giveawayID string) (*models.Participant, error) {
	sqlTx, err := unwrapTx(tx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, giveaway_id, guest_name, telegram_handle, fingerprint, ip_address, created_at
		FROM participants
		WHERE giveaway_id = $1
		ORDER BY random()
		LIMIT 1
	`

	var p models.Participant
	err = sqlTx.QueryRowContext(ctx, query, giveawayID).Scan(
		&p.ID, &p.GiveawayID, &p.GuestName, &p.TelegramHandle, &p.Fingerprint, &p.IPAddress, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNoParticipants
		}
		return nil, fmt.Errorf("failed to pick random participant: %w", err)
	}

	return &p, nil
}

// MarkEndedTx — условный апдейт фиксации победителя. Победитель
// назначается не более одного раза: из N конкурентных вызовов ровно один
// увидит rows affected = 1.
func (r *postgresRepository) MarkEndedTx(ctx context.Context, tx repository.Transaction, giveawayID, winnerID string) (bool, error) {
	sqlTx, err := unwrapTx(tx)
	if err != nil {
		return false, err
	}

	// Просроченный розыгрыш мог быть закрыт свипом до выбора победителя,
	// поэтому ended без winner_id еще допускает фиксацию
	result, err := sqlTx.ExecContext(ctx, `
		UPDATE giveaways
		SET status = 'ended', winner_id = $2, updated_at = NOW()
		WHERE id = $1 AND winner_id IS NULL AND status IN ('active', 'running', 'ended')
	`, giveawayID, winnerID)
	if err != nil {
		return false, fmt.Errorf("failed to mark giveaway ended: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return affected == 1, nil
}

// GetParticipantsCount получает количество участников
func (r *postgresRepository) GetParticipantsCount(ctx context.Context, giveawayID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM participants WHERE giveaway_id = $1", giveawayID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get participants count: %w", err)
	}
	return count, nil
}

// ListExpiredOpen возвращает открытые розыгрыши с прошедшим дедлайном
func (r *postgresRepository) ListExpiredOpen(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM giveaways
		WHERE status IN ('active', 'running') AND end_date < NOW()
		ORDER BY end_date
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired giveaways: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan giveaway id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// CloseExpired закрывает просроченный розыгрыш; winner_id не трогает
func (r *postgresRepository) CloseExpired(ctx context.Context, giveawayID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE giveaways
		SET status = 'ended', updated_at = NOW()
		WHERE id = $1 AND status IN ('active', 'running') AND end_date < NOW()
	`, giveawayID)
	if err != nil {
		return false, fmt.Errorf("failed to close expired giveaway: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return affected == 1, nil
}

// Create создает розыгрыш. Используется сидингом и тестами: сами
// розыгрыши заводит CMS, движок ими не владеет.
func (r *postgresRepository) Create(ctx context.Context, giveaway *models.Giveaway) error {
	var maxParticipants interface{}
	if giveaway.MaxParticipants > 0 {
		maxParticipants = giveaway.MaxParticipants
	}

	query := `
		INSERT INTO giveaways (id, title, status, start_date, end_date, max_participants, allow_guests, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		giveaway.ID, giveaway.Title, giveaway.Status, giveaway.StartDate, giveaway.EndDate,
		maxParticipants, giveaway.AllowGuests, timeOrNow(giveaway.CreatedAt), timeOrNow(giveaway.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create giveaway: %w", err)
	}

	return nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
