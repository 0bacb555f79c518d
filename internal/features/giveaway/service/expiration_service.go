package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"giveaway-engine-backend/internal/common/logger"
	"giveaway-engine-backend/internal/features/giveaway/repository"
)

const (
	sweepBatchSize   = 100
	sweepConcurrency = 4
)

// ExpirationService периодически закрывает розыгрыши с истекшим дедлайном.
// Закрытие идемпотентно и безопасно относительно гонки с выбором победителя:
// CloseExpired не трогает уже решенные розыгрыши.
type ExpirationService struct {
	repo     repository.GiveawayRepository
	interval time.Duration
	log      zerolog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewExpirationService(repo repository.GiveawayRepository, interval time.Duration) *ExpirationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &ExpirationService{
		repo:     repo,
		interval: interval,
		log:      logger.With("expiration_service"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *ExpirationService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.log.Info().Dur("interval", s.interval).Msg("expiration sweep started")

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				s.log.Info().Msg("expiration sweep stopped")
				return
			case <-ticker.C:
				if err := s.ProcessExpiredGiveaways(s.ctx); err != nil {
					s.log.Error().Err(err).Msg("expiration sweep failed")
				}
			}
		}
	}()
}

func (s *ExpirationService) Stop() {
	s.cancel()
	s.wg.Wait()
}

// ProcessExpiredGiveaways закрывает один батч просроченных розыгрышей
func (s *ExpirationService) ProcessExpiredGiveaways(ctx context.Context) error {
	ids, err := s.repo.ListExpiredOpen(ctx, sweepBatchSize)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	var closed int64
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			ok, cerr := s.repo.CloseExpired(gctx, id)
			if cerr != nil {
				s.log.Error().Err(cerr).Str("giveaway_id", id).Msg("failed to close expired giveaway")
				return nil // один сбой не останавливает батч
			}
			if ok {
				mu.Lock()
				closed++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if closed > 0 {
		s.log.Info().Int64("closed", closed).Int("candidates", len(ids)).Msg("closed expired giveaways")
	}
	return nil
}
