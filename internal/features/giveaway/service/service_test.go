package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giveaway-engine-backend/internal/common/config"
	apperrors "giveaway-engine-backend/internal/common/errors"
	"giveaway-engine-backend/internal/common/metrics"
	"giveaway-engine-backend/internal/features/giveaway/models"
	"giveaway-engine-backend/internal/features/giveaway/repository/memory"
	"giveaway-engine-backend/internal/platform/captcha"
	"giveaway-engine-backend/internal/platform/ratelimit"
)

type stubVerifier struct {
	enabled bool
	result  *captcha.Result

	mu    sync.Mutex
	calls int
}

func (v *stubVerifier) Enabled() bool { return v.enabled }

func (v *stubVerifier) Verify(context.Context, string, string) *captcha.Result {
	v.mu.Lock()
	v.calls++
	v.mu.Unlock()
	return v.result
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.RateLimit.JoinIPMax = 10
	cfg.RateLimit.JoinIPWindow = time.Minute
	cfg.RateLimit.JoinIPBlock = 5 * time.Minute
	cfg.RateLimit.JoinFingerprintMax = 5
	cfg.RateLimit.JoinFingerprintWindow = time.Minute
	cfg.RateLimit.JoinFingerprintBlock = 10 * time.Minute
	return cfg
}

func newTestService(t *testing.T, repo *memory.MemoryRepository, verifier captcha.Verifier) ParticipationService {
	t.Helper()
	return NewParticipationService(
		repo,
		ratelimit.New(ratelimit.NewMemoryStore()),
		verifier,
		metrics.New(prometheus.NewRegistry()),
		testConfig(),
	)
}

func activeGiveaway(t *testing.T, repo *memory.MemoryRepository, id string, maxParticipants int) {
	t.Helper()
	err := repo.Create(context.Background(), &models.Giveaway{
		ID:              id,
		Title:           "Test Giveaway",
		Status:          models.GiveawayStatusActive,
		StartDate:       time.Now().Add(-time.Hour),
		EndDate:         time.Now().Add(time.Hour),
		MaxParticipants: maxParticipants,
		AllowGuests:     true,
	})
	require.NoError(t, err)
}

func joinInput(giveawayID, handle, fingerprint, ip string) *models.JoinInput {
	return &models.JoinInput{
		GiveawayID:     giveawayID,
		GuestName:      "Alice",
		TelegramHandle: handle,
		Fingerprint:    fingerprint,
		IPAddress:      ip,
		CaptchaToken:   "tok",
	}
}

func TestJoin_Success(t *testing.T) {
	repo := memory.NewMemoryRepository()
	activeGiveaway(t, repo, "g1", 0)
	svc := newTestService(t, repo, &stubVerifier{enabled: false})

	result, err := svc.Join(context.Background(), joinInput("g1", "@alice_2024", "f3a9c1d24be87a50", "1.2.3.4"))
	require.NoError(t, err)
	assert.NotEmpty(t, result.ParticipantID)

	count, err := repo.GetParticipantsCount(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestJoin_GiveawayNotFound(t *testing.T) {
	repo := memory.NewMemoryRepository()
	svc := newTestService(t, repo, &stubVerifier{enabled: false})

	_, err := svc.Join(context.Background(), joinInput("missing", "@alice_2024", "f3a9c1d24be87a50", "1.2.3.4"))
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeGiveawayNotFound, appErr.Code)
}

func TestJoin_ValidationRejectsBadInput(t *testing.T) {
	repo := memory.NewMemoryRepository()
	activeGiveaway(t, repo, "g1", 0)
	svc := newTestService(t, repo, &stubVerifier{enabled: false})

	tests := []struct {
		name  string
		input *models.JoinInput
	}{
		{"empty guest name", &models.JoinInput{GiveawayID: "g1", TelegramHandle: "@alice_2024", Fingerprint: "f3a9c1d24be87a50", IPAddress: "1.2.3.4"}},
		{"short handle", joinInput("g1", "@abc", "f3a9c1d24be87a50", "1.2.3.4")},
		{"short fingerprint", joinInput("g1", "@alice_2024", "short", "1.2.3.4")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Join(context.Background(), tt.input)
			appErr, ok := apperrors.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.ErrCodeValidation, appErr.Code)
		})
	}

	count, err := repo.GetParticipantsCount(context.Background(), "g1")
	require.NoError(t, err)
	assert.Zero(t, count, "rejected joins must not insert rows")
}

func TestJoin_DuplicateHandleNormalized(t *testing.T) {
	repo := memory.NewMemoryRepository()
	activeGiveaway(t, repo, "g1", 0)
	svc := newTestService(t, repo, &stubVerifier{enabled: false})
	ctx := context.Background()

	_, err := svc.Join(ctx, joinInput("g1", "MyUser123", "f3a9c1d24be87a50", "1.2.3.4"))
	require.NoError(t, err)

	// Другое написание того же handle, другой fingerprint и IP
	_, err = svc.Join(ctx, joinInput("g1", "@myuser123", "0000111122223333", "5.6.7.8"))
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeDuplicateEntry, appErr.Code)
	assert.Equal(t, models.DuplicateByHandle, appErr.Details["method"])
}

func TestJoin_DuplicateFingerprint(t *testing.T) {
	repo := memory.NewMemoryRepository()
	activeGiveaway(t, repo, "g1", 0)
	svc := newTestService(t, repo, &stubVerifier{enabled: false})
	ctx := context.Background()

	_, err := svc.Join(ctx, joinInput("g1", "@alice_2024", "f3a9c1d24be87a50", "1.2.3.4"))
	require.NoError(t, err)

	// Тот же девайс, другой handle
	_, err = svc.Join(ctx, joinInput("g1", "@bobby_2024", "f3a9c1d24be87a50", "1.2.3.4"))
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeDuplicateEntry, appErr.Code)
	assert.Equal(t, models.DuplicateByFingerprint, appErr.Details["method"])
}

func TestJoin_SameHandleDifferentGiveaways(t *testing.T) {
	repo := memory.NewMemoryRepository()
	activeGiveaway(t, repo, "g1", 0)
	activeGiveaway(t, repo, "g2", 0)
	svc := newTestService(t, repo, &stubVerifier{enabled: false})
	ctx := context.Background()

	_, err := svc.Join(ctx, joinInput("g1", "@alice_2024", "f3a9c1d24be87a50", "1.2.3.4"))
	require.NoError(t, err)

	_, err = svc.Join(ctx, joinInput("g2", "@alice_2024", "f3a9c1d24be87a50", "1.2.3.4"))
	require.NoError(t, err, "uniqueness is scoped per giveaway")
}

func TestJoin_ClosedGiveaway(t *testing.T) {
	repo := memory.NewMemoryRepository()
	require.NoError(t, repo.Create(context.Background(), &models.Giveaway{
		ID:          "g1",
		Title:       "Ended",
		Status:      models.GiveawayStatusEnded,
		EndDate:     time.Now().Add(-time.Hour),
		AllowGuests: true,
	}))
	svc := newTestService(t, repo, &stubVerifier{enabled: false})

	_, err := svc.Join(context.Background(), joinInput("g1", "@alice_2024", "f3a9c1d24be87a50", "1.2.3.4"))
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeGiveawayClosed, appErr.Code)
}

func TestJoin_DeadlinePassedButStillOpen(t *testing.T) {
	// Свип еще не добежал: статус active, но дедлайн прошел
	repo := memory.NewMemoryRepository()
	require.NoError(t, repo.Create(context.Background(), &models.Giveaway{
		ID:          "g1",
		Title:       "Expired",
		Status:      models.GiveawayStatusActive,
		StartDate:   time.Now().Add(-2 * time.Hour),
		EndDate:     time.Now().Add(-time.Hour),
		AllowGuests: true,
	}))
	svc := newTestService(t, repo, &stubVerifier{enabled: false})

	_, err := svc.Join(context.Background(), joinInput("g1", "@alice_2024", "f3a9c1d24be87a50", "1.2.3.4"))
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeGiveawayClosed, appErr.Code)
}

func TestJoin_GuestsNotAllowed(t *testing.T) {
	repo := memory.NewMemoryRepository()
	require.NoError(t, repo.Create(context.Background(), &models.Giveaway{
		ID:        "g1",
		Title:     "Members only",
		Status:    models.GiveawayStatusActive,
		StartDate: time.Now().Add(-time.Hour),
		EndDate:   time.Now().Add(time.Hour),
	}))
	svc := newTestService(t, repo, &stubVerifier{enabled: false})

	_, err := svc.Join(context.Background(), joinInput("g1", "@alice_2024", "f3a9c1d24be87a50", "1.2.3.4"))
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeNotEligible, appErr.Code)
}

func TestJoin_CapacityExceeded(t *testing.T) {
	repo := memory.NewMemoryRepository()
	activeGiveaway(t, repo, "g1", 2)
	svc := newTestService(t, repo, &stubVerifier{enabled: false})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Join(ctx, joinInput("g1",
			fmt.Sprintf("@user_%d_2024", i),
			fmt.Sprintf("fingerprint%06d00", i),
			fmt.Sprintf("10.0.0.%d", i+1)))
		require.NoError(t, err)
	}

	_, err := svc.Join(ctx, joinInput("g1", "@late_user_2024", "latefingerprint0", "10.0.0.99"))
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeCapacityExceeded, appErr.Code)
}

func TestJoin_ConcurrentJoinsRespectCapacity(t *testing.T) {
	const capacity = 5
	const attempts = 20

	repo := memory.NewMemoryRepository()
	activeGiveaway(t, repo, "g1", capacity)
	svc := newTestService(t, repo, &stubVerifier{enabled: false})

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Join(context.Background(), joinInput("g1",
				fmt.Sprintf("@user_%d_2024", i),
				fmt.Sprintf("fingerprint%06d00", i),
				fmt.Sprintf("10.0.%d.%d", i/250, i%250+1)))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, capacity, succeeded, "admitted participants must never exceed capacity")

	count, err := repo.GetParticipantsCount(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, int64(capacity), count)
}

func TestJoin_TwoCallersOneSlot(t *testing.T) {
	repo := memory.NewMemoryRepository()
	activeGiveaway(t, repo, "g1", 1)
	svc := newTestService(t, repo, &stubVerifier{enabled: false})

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Join(context.Background(), joinInput("g1",
				fmt.Sprintf("@racer_%d_2024", i),
				fmt.Sprintf("racerfingerpr%03d", i),
				fmt.Sprintf("10.5.0.%d", i+1)))
		}(i)
	}
	wg.Wait()

	winners, losers := 0, 0
	for _, err := range results {
		if err == nil {
			winners++
			continue
		}
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeCapacityExceeded, appErr.Code)
		losers++
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, losers)
}

func TestJoin_ConcurrentDuplicateHandleAdmitsOne(t *testing.T) {
	repo := memory.NewMemoryRepository()
	activeGiveaway(t, repo, "g1", 0)
	svc := newTestService(t, repo, &stubVerifier{enabled: false})

	const attempts = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Один и тот же handle, разные fingerprint и IP
			_, err := svc.Join(context.Background(), joinInput("g1",
				"@same_user_2024",
				fmt.Sprintf("fingerprint%06d00", i),
				fmt.Sprintf("10.1.0.%d", i+1)))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded, "the same handle must be admitted exactly once")
}

func TestJoin_RateLimitedByIP(t *testing.T) {
	repo := memory.NewMemoryRepository()
	activeGiveaway(t, repo, "g1", 0)
	svc := newTestService(t, repo, &stubVerifier{enabled: false})
	ctx := context.Background()

	cfg := testConfig()
	for i := 0; i < cfg.RateLimit.JoinIPMax; i++ {
		// Разные fingerprint, чтобы не упереться в лимит устройства
		_, err := svc.Join(ctx, joinInput("g1",
			fmt.Sprintf("@user_%d_2024", i),
			fmt.Sprintf("fingerprint%06d%02d", i, i%2),
			"1.2.3.4"))
		require.NoError(t, err)
	}

	_, err := svc.Join(ctx, joinInput("g1", "@one_more_2024", "onemorefingerpr1", "1.2.3.4"))
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeRateLimited, appErr.Code)
	assert.NotZero(t, appErr.Details["retry_after_seconds"])
}

func TestJoin_RateLimitedByFingerprint(t *testing.T) {
	repo := memory.NewMemoryRepository()
	activeGiveaway(t, repo, "g1", 0)
	svc := newTestService(t, repo, &stubVerifier{enabled: false})
	ctx := context.Background()

	cfg := testConfig()
	// Лимит fingerprint ниже лимита IP; IP меняем, девайс не меняем
	for i := 0; i < cfg.RateLimit.JoinFingerprintMax; i++ {
		input := joinInput("g1",
			fmt.Sprintf("@user_%d_2024", i),
			"samedevicefinger",
			fmt.Sprintf("10.2.0.%d", i+1))
		_, err := svc.Join(ctx, input)
		if i == 0 {
			require.NoError(t, err)
		}
		// Последующие попытки отбиваются как дубликат по fingerprint,
		// но окно лимитера при этом уже потрачено
	}

	_, err := svc.Join(ctx, joinInput("g1", "@next_user_2024", "samedevicefinger", "10.2.0.100"))
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeRateLimited, appErr.Code)
}

func TestJoin_CaptchaFailureRejectsBeforeInsert(t *testing.T) {
	repo := memory.NewMemoryRepository()
	activeGiveaway(t, repo, "g1", 0)
	verifier := &stubVerifier{
		enabled: true,
		result:  &captcha.Result{Success: false, ErrorCodes: []string{"invalid-input-response"}},
	}
	svc := newTestService(t, repo, verifier)

	_, err := svc.Join(context.Background(), joinInput("g1", "@alice_2024", "f3a9c1d24be87a50", "1.2.3.4"))
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeVerificationFailed, appErr.Code)

	count, cerr := repo.GetParticipantsCount(context.Background(), "g1")
	require.NoError(t, cerr)
	assert.Zero(t, count, "captcha failure must leave no participant row")
}

func TestJoin_CaptchaSuccessAdmits(t *testing.T) {
	repo := memory.NewMemoryRepository()
	activeGiveaway(t, repo, "g1", 0)
	verifier := &stubVerifier{enabled: true, result: &captcha.Result{Success: true}}
	svc := newTestService(t, repo, verifier)

	_, err := svc.Join(context.Background(), joinInput("g1", "@alice_2024", "f3a9c1d24be87a50", "1.2.3.4"))
	require.NoError(t, err)
	assert.Equal(t, 1, verifier.calls)
}

func TestJoin_CaptchaSkippedWhenDisabled(t *testing.T) {
	repo := memory.NewMemoryRepository()
	activeGiveaway(t, repo, "g1", 0)
	verifier := &stubVerifier{enabled: false, result: &captcha.Result{Success: false}}
	svc := newTestService(t, repo, verifier)

	_, err := svc.Join(context.Background(), joinInput("g1", "@alice_2024", "f3a9c1d24be87a50", "1.2.3.4"))
	require.NoError(t, err, "disabled captcha must not block joins")
	assert.Zero(t, verifier.calls)
}

func TestJoin_RateLimitCheckedBeforeCaptcha(t *testing.T) {
	repo := memory.NewMemoryRepository()
	activeGiveaway(t, repo, "g1", 0)
	verifier := &stubVerifier{enabled: true, result: &captcha.Result{Success: true}}
	svc := newTestService(t, repo, verifier)
	ctx := context.Background()

	cfg := testConfig()
	for i := 0; i < cfg.RateLimit.JoinIPMax; i++ {
		_, _ = svc.Join(ctx, joinInput("g1",
			fmt.Sprintf("@user_%d_2024", i),
			fmt.Sprintf("fingerprint%06d%02d", i, i%3),
			"1.2.3.4"))
	}
	callsBefore := verifier.calls

	_, err := svc.Join(ctx, joinInput("g1", "@one_more_2024", "onemorefingerpr1", "1.2.3.4"))
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeRateLimited, appErr.Code)
	assert.Equal(t, callsBefore, verifier.calls, "rate limited request must not spend a captcha verification")
}

func TestCheckParticipation(t *testing.T) {
	repo := memory.NewMemoryRepository()
	activeGiveaway(t, repo, "g1", 0)
	svc := newTestService(t, repo, &stubVerifier{enabled: false})
	ctx := context.Background()

	_, err := svc.Join(ctx, joinInput("g1", "@alice_2024", "f3a9c1d24be87a50", "1.2.3.4"))
	require.NoError(t, err)

	t.Run("by handle, any spelling", func(t *testing.T) {
		check := svc.CheckParticipation(ctx, "g1", "Alice_2024", "differentdevice1")
		assert.True(t, check.Participated)
		assert.Equal(t, models.DuplicateByHandle, check.Method)
	})

	t.Run("by fingerprint", func(t *testing.T) {
		check := svc.CheckParticipation(ctx, "g1", "@someone_else_24", "f3a9c1d24be87a50")
		assert.True(t, check.Participated)
		assert.Equal(t, models.DuplicateByFingerprint, check.Method)
	})

	t.Run("not participated", func(t *testing.T) {
		check := svc.CheckParticipation(ctx, "g1", "@fresh_user_2024", "freshfingerprint")
		assert.False(t, check.Participated)
	})

	t.Run("unknown giveaway reported as not participated", func(t *testing.T) {
		check := svc.CheckParticipation(ctx, "missing", "@alice_2024", "f3a9c1d24be87a50")
		assert.False(t, check.Participated)
	})
}

func TestGetByID(t *testing.T) {
	repo := memory.NewMemoryRepository()
	activeGiveaway(t, repo, "g1", 0)
	svc := newTestService(t, repo, &stubVerifier{enabled: false})

	g, err := svc.GetByID(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", g.ID)

	_, err = svc.GetByID(context.Background(), "missing")
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeGiveawayNotFound, appErr.Code)
}
