// Package memory реализует GiveawayRepository в памяти процесса.
// Используется юнит- и конкурентными тестами движка: семантика
// транзакций и ошибок совпадает с postgres-реализацией.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"giveaway-engine-backend/internal/features/giveaway/models"
	"giveaway-engine-backend/internal/features/giveaway/repository"
	"giveaway-engine-backend/internal/utils/random"
)

type MemoryRepository struct {
	// txMu сериализует транзакции: грубый эквивалент блокировки строки
	txMu sync.Mutex
	// mu защищает maps от конкурентного чтения вне транзакций
	mu sync.RWMutex

	giveaways    map[string]*models.Giveaway
	participants map[string][]*models.Participant // giveaway_id -> append-only список

	now func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		giveaways:    make(map[string]*models.Giveaway),
		participants: make(map[string][]*models.Participant),
		now:          time.Now,
	}
}

// WithClock подменяет источник времени (для тестов свипа)
func (r *MemoryRepository) WithClock(now func() time.Time) *MemoryRepository {
	r.now = now
	return r
}

type memoryTransaction struct {
	repo *MemoryRepository
	done bool

	// Журнал для отката
	insertedIDs []string
	prevStatus  map[string]models.GiveawayStatus
	prevWinner  map[string]*string
}

func (r *MemoryRepository) BeginTx(_ context.Context) (repository.Transaction, error) {
	r.txMu.Lock()
	return &memoryTransaction{
		repo:       r,
		prevStatus: make(map[string]models.GiveawayStatus),
		prevWinner: make(map[string]*string),
	}, nil
}

func (t *memoryTransaction) Commit() error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.done = true
	t.repo.txMu.Unlock()
	return nil
}

func (t *memoryTransaction) Rollback() error {
	if t.done {
		// Rollback после Commit — no-op, как у database/sql
		return nil
	}
	t.done = true

	t.repo.mu.Lock()
	for _, id := range t.insertedIDs {
		for gid, list := range t.repo.participants {
			for i, p := range list {
				if p.ID == id {
					t.repo.participants[gid] = append(list[:i], list[i+1:]...)
					break
				}
			}
		}
	}
	for gid, status := range t.prevStatus {
		if g, ok := t.repo.giveaways[gid]; ok {
			g.Status = status
		}
	}
	for gid, winner := range t.prevWinner {
		if g, ok := t.repo.giveaways[gid]; ok {
			g.WinnerID = winner
		}
	}
	t.repo.mu.Unlock()

	t.repo.txMu.Unlock()
	return nil
}

func unwrapTx(tx repository.Transaction) (*memoryTransaction, error) {
	memTx, ok := tx.(*memoryTransaction)
	if !ok || memTx.done {
		return nil, fmt.Errorf("invalid or finished transaction")
	}
	return memTx, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.Giveaway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.giveaways[id]
	if !ok {
		return nil, repository.ErrGiveawayNotFound
	}
	copied := *g
	return &copied, nil
}

func (r *MemoryRepository) GetByIDForUpdate(ctx context.Context, tx repository.Transaction, id string) (*models.Giveaway, error) {
	if _, err := unwrapTx(tx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *MemoryRepository) CountParticipantsTx(ctx context.Context, tx repository.Transaction, giveawayID string) (int64, error) {
	if _, err := unwrapTx(tx); err != nil {
		return 0, err
	}
	return r.GetParticipantsCount(ctx, giveawayID)
}

func (r *MemoryRepository) FindDuplicateTx(ctx context.Context, tx repository.Transaction, giveawayID, handle, fingerprint string) (string, error) {
	if _, err := unwrapTx(tx); err != nil {
		return "", err
	}
	return r.FindParticipant(ctx, giveawayID, handle, fingerprint)
}

func (r *MemoryRepository) FindParticipant(_ context.Context, giveawayID, handle, fingerprint string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.participants[giveawayID] {
		if handle != "" && p.TelegramHandle == handle {
			return models.DuplicateByHandle, nil
		}
	}
	for _, p := range r.participants[giveawayID] {
		if fingerprint != "" && p.Fingerprint == fingerprint {
			return models.DuplicateByFingerprint, nil
		}
	}
	return "", nil
}

func (r *MemoryRepository) InsertParticipantTx(_ context.Context, tx repository.Transaction, p *models.Participant) error {
	memTx, err := unwrapTx(tx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Та же защита в глубину, что и уникальные индексы в postgres
	for _, existing := range r.participants[p.GiveawayID] {
		if existing.TelegramHandle == p.TelegramHandle {
			return repository.ErrDuplicateHandle
		}
		if existing.Fingerprint == p.Fingerprint {
			return repository.ErrDuplicateFingerprint
		}
	}

	copied := *p
	r.participants[p.GiveawayID] = append(r.participants[p.GiveawayID], &copied)
	memTx.insertedIDs = append(memTx.insertedIDs, p.ID)
	return nil
}

func (r *MemoryRepository) PickRandomParticipantTx(_ context.Context, tx repository.Transaction, giveawayID string) (*models.Participant, error) {
	if _, err := unwrapTx(tx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	list := r.participants[giveawayID]
	candidates := make([]*models.Participant, len(list))
	copy(candidates, list)
	r.mu.RUnlock()

	if len(candidates) == 0 {
		return nil, repository.ErrNoParticipants
	}

	picked, err := random.Pick(candidates)
	if err != nil {
		return nil, err
	}
	copied := *picked
	return &copied, nil
}

func (r *MemoryRepository) MarkEndedTx(_ context.Context, tx repository.Transaction, giveawayID, winnerID string) (bool, error) {
	memTx, err := unwrapTx(tx)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.giveaways[giveawayID]
	if !ok {
		return false, nil
	}

	// То же условие, что и в SQL-апдейте postgres-реализации
	if g.WinnerID != nil || g.Status == models.GiveawayStatusCancelled {
		return false, nil
	}

	if _, seen := memTx.prevStatus[giveawayID]; !seen {
		memTx.prevStatus[giveawayID] = g.Status
		memTx.prevWinner[giveawayID] = g.WinnerID
	}

	g.Status = models.GiveawayStatusEnded
	winner := winnerID
	g.WinnerID = &winner
	g.UpdatedAt = r.now()
	return true, nil
}

func (r *MemoryRepository) GetParticipantsCount(_ context.Context, giveawayID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.participants[giveawayID])), nil
}

func (r *MemoryRepository) ListExpiredOpen(_ context.Context, limit int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.now()
	var ids []string
	for id, g := range r.giveaways {
		if g.IsOpen() && g.HasEnded(now) {
			ids = append(ids, id)
			if len(ids) >= limit {
				break
			}
		}
	}
	return ids, nil
}

func (r *MemoryRepository) CloseExpired(_ context.Context, giveawayID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.giveaways[giveawayID]
	if !ok || !g.IsOpen() || !g.HasEnded(r.now()) {
		return false, nil
	}

	g.Status = models.GiveawayStatusEnded
	g.UpdatedAt = r.now()
	return true, nil
}

func (r *MemoryRepository) Create(_ context.Context, giveaway *models.Giveaway) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.giveaways[giveaway.ID]; exists {
		return fmt.Errorf("giveaway already exists: %s", giveaway.ID)
	}

	copied := *giveaway
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = r.now()
	}
	if copied.UpdatedAt.IsZero() {
		copied.UpdatedAt = r.now()
	}
	r.giveaways[giveaway.ID] = &copied
	return nil
}
