// Package ratelimit реализует fixed-window лимитер с эскалацией в блокировку.
// Лимитер не знает про розыгрыши: идентификатор — произвольная строка
// вида "ip:join" или "fp:join", правило задает вызывающая сторона.
package ratelimit

import (
	"context"
	"time"
)

// Rule описывает потолок для одного идентификатора
type Rule struct {
	MaxRequests int
	Window      time.Duration
	// BlockFor — на сколько блокировать после превышения потолка.
	// Блокировка перекрывает истечение окна.
	BlockFor time.Duration
}

// Result — ответ лимитера. Каждый вызов получает однозначный allow/deny,
// запросы никогда не теряются молча.
type Result struct {
	Allowed      bool
	Remaining    int
	ResetAt      time.Time
	BlockedUntil time.Time
}

// RetryAfter возвращает, через сколько можно повторить запрос
func (r *Result) RetryAfter(now time.Time) time.Duration {
	until := r.ResetAt
	if r.BlockedUntil.After(until) {
		until = r.BlockedUntil
	}
	if d := until.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Store — подключаемое хранилище счетчиков: in-memory для одного
// инстанса, Redis для горизонтального масштабирования. Инкремент и
// сравнение с потолком внутри Check атомарны для каждого идентификатора.
type Store interface {
	Check(ctx context.Context, identifier string, rule Rule) (*Result, error)
}

// Limiter — инжектируемый лимитер поверх выбранного хранилища
type Limiter struct {
	store Store
}

func New(store Store) *Limiter {
	return &Limiter{store: store}
}

func (l *Limiter) Check(ctx context.Context, identifier string, rule Rule) (*Result, error) {
	return l.store.Check(ctx, identifier, rule)
}
