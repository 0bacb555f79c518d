package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"giveaway-engine-backend/internal/common/config"
	apperrors "giveaway-engine-backend/internal/common/errors"
	"giveaway-engine-backend/internal/common/logger"
	"giveaway-engine-backend/internal/common/metrics"
	"giveaway-engine-backend/internal/common/validation"
	"giveaway-engine-backend/internal/features/giveaway/models"
	"giveaway-engine-backend/internal/features/giveaway/repository"
	"giveaway-engine-backend/internal/platform/captcha"
	"giveaway-engine-backend/internal/platform/ratelimit"
)

const (
	limitKindIP          = "ip"
	limitKindFingerprint = "fingerprint"
)

type participationService struct {
	repo    repository.GiveawayRepository
	limiter *ratelimit.Limiter
	captcha captcha.Verifier
	metrics *metrics.Metrics
	ipRule  ratelimit.Rule
	fpRule  ratelimit.Rule
	log     zerolog.Logger
	now     func() time.Time
}

// NewParticipationService собирает сервис участия из хранилища,
// лимитера и верификатора капчи. Правила лимитов берутся из конфига.
func NewParticipationService(
	repo repository.GiveawayRepository,
	limiter *ratelimit.Limiter,
	verifier captcha.Verifier,
	m *metrics.Metrics,
	cfg *config.Config,
) ParticipationService {
	return &participationService{
		repo:    repo,
		limiter: limiter,
		captcha: verifier,
		metrics: m,
		ipRule: ratelimit.Rule{
			MaxRequests: cfg.RateLimit.JoinIPMax,
			Window:      cfg.RateLimit.JoinIPWindow,
			BlockFor:    cfg.RateLimit.JoinIPBlock,
		},
		fpRule: ratelimit.Rule{
			MaxRequests: cfg.RateLimit.JoinFingerprintMax,
			Window:      cfg.RateLimit.JoinFingerprintWindow,
			BlockFor:    cfg.RateLimit.JoinFingerprintBlock,
		},
		log: logger.With("participation_service"),
		now: time.Now,
	}
}

func (s *participationService) Join(ctx context.Context, input *models.JoinInput) (*models.JoinResult, error) {
	if err := validation.ValidateGuestName(input.GuestName); err != nil {
		return nil, apperrors.NewValidationError("guest_name", err.Error())
	}
	if err := validation.ValidateHandle(input.TelegramHandle); err != nil {
		return nil, apperrors.NewValidationError("telegram_handle", err.Error())
	}
	if err := validation.ValidateFingerprint(input.Fingerprint); err != nil {
		return nil, apperrors.NewValidationError("fingerprint", err.Error())
	}
	handle := validation.NormalizeHandle(input.TelegramHandle)

	// Порядок фильтров фиксирован: сначала дешёвые (лимиты), потом
	// капча, и только потом транзакция. IP проверяется раньше
	// fingerprint, чтобы заблокированный IP не прожигал окно fingerprint.
	if appErr := s.checkLimit(ctx, limitKindIP, "join:ip:"+input.IPAddress, s.ipRule); appErr != nil {
		return nil, appErr
	}
	if appErr := s.checkLimit(ctx, limitKindFingerprint, "join:fp:"+input.Fingerprint, s.fpRule); appErr != nil {
		return nil, appErr
	}

	if s.captcha.Enabled() {
		result := s.captcha.Verify(ctx, input.CaptchaToken, input.IPAddress)
		if !result.Success {
			s.metrics.CaptchaFailures.Inc()
			s.metrics.ObserveJoin("captcha_failed")
			msg := "captcha verification failed"
			if result.Retryable() {
				msg = "captcha verification failed, please try again"
			}
			return nil, apperrors.New(apperrors.ErrCodeVerificationFailed, msg)
		}
	}

	// Консультативная проверка дубликата до открытия транзакции.
	// Ошибку хранилища игнорируем: авторитетная проверка внутри.
	if method, ferr := s.repo.FindParticipant(ctx, input.GiveawayID, handle, input.Fingerprint); ferr == nil && method != "" {
		s.metrics.ObserveJoin("duplicate")
		return nil, apperrors.NewDuplicateEntryError(method)
	}

	result, err := s.joinTx(ctx, input, handle)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code == apperrors.ErrCodeDuplicateEntry {
			s.metrics.ObserveJoin("duplicate")
		} else if errors.As(err, &appErr) && appErr.IsInternal() {
			s.metrics.ObserveJoin("error")
		} else {
			s.metrics.ObserveJoin("rejected")
		}
		return nil, err
	}
	s.metrics.ObserveJoin("joined")
	return result, nil
}

// joinTx держит блокировку строки розыгрыша на всё время проверок:
// статус, дедлайн, вместимость, дубликат, вставка.
func (s *participationService) joinTx(ctx context.Context, input *models.JoinInput, handle string) (*models.JoinResult, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("begin join transaction", err)
	}
	defer tx.Rollback()

	g, err := s.repo.GetByIDForUpdate(ctx, tx, input.GiveawayID)
	if err != nil {
		if errors.Is(err, repository.ErrGiveawayNotFound) {
			return nil, apperrors.NewGiveawayNotFoundError(input.GiveawayID)
		}
		return nil, apperrors.NewDatabaseError("lock giveaway", err)
	}
	if !g.IsJoinable(s.now()) {
		return nil, apperrors.New(apperrors.ErrCodeGiveawayClosed, "giveaway is no longer accepting entries")
	}
	if !g.AllowGuests {
		return nil, apperrors.New(apperrors.ErrCodeNotEligible, "giveaway does not accept guest entries")
	}
	if g.MaxParticipants > 0 {
		count, cerr := s.repo.CountParticipantsTx(ctx, tx, g.ID)
		if cerr != nil {
			return nil, apperrors.NewDatabaseError("count participants", cerr)
		}
		if count >= int64(g.MaxParticipants) {
			return nil, apperrors.New(apperrors.ErrCodeCapacityExceeded, "giveaway has reached its participant limit")
		}
	}
	if method, derr := s.repo.FindDuplicateTx(ctx, tx, g.ID, handle, input.Fingerprint); derr != nil {
		return nil, apperrors.NewDatabaseError("check duplicates", derr)
	} else if method != "" {
		return nil, apperrors.NewDuplicateEntryError(method)
	}

	p := &models.Participant{
		ID:             uuid.New().String(),
		GiveawayID:     g.ID,
		GuestName:      input.GuestName,
		TelegramHandle: handle,
		Fingerprint:    input.Fingerprint,
		IPAddress:      input.IPAddress,
		CreatedAt:      s.now(),
	}
	if err := s.repo.InsertParticipantTx(ctx, tx, p); err != nil {
		// Уникальные индексы ловят гонку, проскочившую мимо FindDuplicateTx
		switch {
		case errors.Is(err, repository.ErrDuplicateHandle):
			return nil, apperrors.NewDuplicateEntryError(models.DuplicateByHandle)
		case errors.Is(err, repository.ErrDuplicateFingerprint):
			return nil, apperrors.NewDuplicateEntryError(models.DuplicateByFingerprint)
		}
		return nil, apperrors.NewDatabaseError("insert participant", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewDatabaseError("commit join transaction", err)
	}
	return &models.JoinResult{ParticipantID: p.ID}, nil
}

// checkLimit возвращает nil и при отказе лимитера как компонента:
// лимитер это фильтр от злоупотреблений, а не источник истины.
func (s *participationService) checkLimit(ctx context.Context, kind, identifier string, rule ratelimit.Rule) *apperrors.AppError {
	result, err := s.limiter.Check(ctx, identifier, rule)
	if err != nil {
		s.log.Error().Err(err).Str("kind", kind).Msg("rate limiter check failed, allowing request")
		return nil
	}
	if result.Allowed {
		return nil
	}
	s.metrics.ObserveRateLimited(kind)
	s.metrics.ObserveJoin("rate_limited")
	return apperrors.NewRateLimitedError(result.RetryAfter(s.now()))
}

func (s *participationService) CheckParticipation(ctx context.Context, giveawayID, handle, fingerprint string) *models.ParticipationCheck {
	normalized := validation.NormalizeHandle(handle)
	method, err := s.repo.FindParticipant(ctx, giveawayID, normalized, fingerprint)
	if err != nil {
		s.log.Warn().Err(err).Str("giveaway_id", giveawayID).Msg("participation check failed, reporting not participated")
		return &models.ParticipationCheck{Participated: false}
	}
	switch method {
	case models.DuplicateByHandle:
		return &models.ParticipationCheck{
			Participated: true,
			Method:       method,
			Message:      "you have already joined this giveaway with this telegram handle",
		}
	case models.DuplicateByFingerprint:
		return &models.ParticipationCheck{
			Participated: true,
			Method:       method,
			Message:      "you have already joined this giveaway from this device",
		}
	}
	return &models.ParticipationCheck{Participated: false}
}

func (s *participationService) GetByID(ctx context.Context, giveawayID string) (*models.Giveaway, error) {
	g, err := s.repo.GetByID(ctx, giveawayID)
	if err != nil {
		if errors.Is(err, repository.ErrGiveawayNotFound) {
			return nil, apperrors.NewGiveawayNotFoundError(giveawayID)
		}
		return nil, apperrors.NewDatabaseError("get giveaway", err)
	}
	return g, nil
}
