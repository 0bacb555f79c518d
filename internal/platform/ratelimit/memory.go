package ratelimit

import (
	"context"
	"sync"
	"time"
)

// record — состояние одного идентификатора: счетчик текущего окна
// и момент снятия блокировки. Одна запись на идентификатор,
// перезаписывается на месте, история не хранится.
type record struct {
	count         int
	windowResetAt time.Time
	blockedUntil  time.Time
}

func (r *record) expired(now time.Time) bool {
	return now.After(r.windowResetAt) && now.After(r.blockedUntil)
}

// MemoryStore — mutex-защищенная map записей. Для деплоя в один инстанс.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*record

	cleanupEvery time.Duration
	now          func() time.Time
}

type MemoryStoreOption func(*MemoryStore)

func WithCleanupEvery(d time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) { s.cleanupEvery = d }
}

// WithClock подменяет источник времени (для тестов)
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		records:      make(map[string]*record),
		cleanupEvery: 2 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check выполняет инкремент-и-сравнение атомарно под мьютексом хранилища.
// Отсутствие записи трактуется как "еще не видели", никогда как блокировку.
func (s *MemoryStore) Check(_ context.Context, identifier string, rule Rule) (*Result, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[identifier]

	// Активная блокировка перекрывает все, включая истекшее окно
	if ok && now.Before(rec.blockedUntil) {
		return &Result{
			Allowed:      false,
			Remaining:    0,
			ResetAt:      rec.blockedUntil,
			BlockedUntil: rec.blockedUntil,
		}, nil
	}

	// Нет записи, окно истекло или блокировка снята — открываем новое окно
	if !ok || now.After(rec.windowResetAt) || !rec.blockedUntil.IsZero() {
		rec = &record{
			count:         1,
			windowResetAt: now.Add(rule.Window),
		}
		s.records[identifier] = rec

		if rec.count > rule.MaxRequests {
			rec.blockedUntil = now.Add(rule.BlockFor)
			return &Result{Allowed: false, ResetAt: rec.blockedUntil, BlockedUntil: rec.blockedUntil}, nil
		}

		return &Result{
			Allowed:   true,
			Remaining: rule.MaxRequests - rec.count,
			ResetAt:   rec.windowResetAt,
		}, nil
	}

	rec.count++
	if rec.count > rule.MaxRequests {
		rec.blockedUntil = now.Add(rule.BlockFor)
		return &Result{
			Allowed:      false,
			Remaining:    0,
			ResetAt:      rec.blockedUntil,
			BlockedUntil: rec.blockedUntil,
		}, nil
	}

	return &Result{
		Allowed:   true,
		Remaining: rule.MaxRequests - rec.count,
		ResetAt:   rec.windowResetAt,
	}, nil
}

// Cleanup удаляет записи, у которых истекли и окно, и блокировка
func (s *MemoryStore) Cleanup() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, rec := range s.records {
		if rec.expired(now) {
			delete(s.records, id)
		}
	}
}

// StartJanitor запускает периодическую чистку истекших записей.
// Останавливается через отмену контекста.
func (s *MemoryStore) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}
