package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giveaway-engine-backend/internal/features/giveaway/models"
	"giveaway-engine-backend/internal/features/giveaway/repository/memory"
)

func TestProcessExpiredGiveaways(t *testing.T) {
	repo := memory.NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Giveaway{
		ID:          "expired-1",
		Title:       "Expired",
		Status:      models.GiveawayStatusActive,
		EndDate:     time.Now().Add(-time.Hour),
		AllowGuests: true,
	}))
	require.NoError(t, repo.Create(ctx, &models.Giveaway{
		ID:          "expired-2",
		Title:       "Expired running",
		Status:      models.GiveawayStatusRunning,
		EndDate:     time.Now().Add(-time.Minute),
		AllowGuests: true,
	}))
	require.NoError(t, repo.Create(ctx, &models.Giveaway{
		ID:          "still-open",
		Title:       "Open",
		Status:      models.GiveawayStatusActive,
		EndDate:     time.Now().Add(time.Hour),
		AllowGuests: true,
	}))

	sweeper := NewExpirationService(repo, time.Minute)
	require.NoError(t, sweeper.ProcessExpiredGiveaways(ctx))

	for _, id := range []string{"expired-1", "expired-2"} {
		g, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.GiveawayStatusEnded, g.Status, "%s must be closed", id)
		assert.Nil(t, g.WinnerID, "sweep must not assign winners")
	}

	g, err := repo.GetByID(ctx, "still-open")
	require.NoError(t, err)
	assert.Equal(t, models.GiveawayStatusActive, g.Status, "unexpired giveaway must stay open")
}

func TestProcessExpiredGiveaways_Idempotent(t *testing.T) {
	repo := memory.NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Giveaway{
		ID:          "expired-1",
		Title:       "Expired",
		Status:      models.GiveawayStatusActive,
		EndDate:     time.Now().Add(-time.Hour),
		AllowGuests: true,
	}))

	sweeper := NewExpirationService(repo, time.Minute)
	require.NoError(t, sweeper.ProcessExpiredGiveaways(ctx))
	require.NoError(t, sweeper.ProcessExpiredGiveaways(ctx))

	g, err := repo.GetByID(ctx, "expired-1")
	require.NoError(t, err)
	assert.Equal(t, models.GiveawayStatusEnded, g.Status)
}

func TestProcessExpiredGiveaways_EmptyBatch(t *testing.T) {
	repo := memory.NewMemoryRepository()
	sweeper := NewExpirationService(repo, time.Minute)

	assert.NoError(t, sweeper.ProcessExpiredGiveaways(context.Background()))
}

func TestExpirationService_StartStop(t *testing.T) {
	repo := memory.NewMemoryRepository()
	sweeper := NewExpirationService(repo, 10*time.Millisecond)

	sweeper.Start()
	time.Sleep(30 * time.Millisecond)
	sweeper.Stop()
	// Stop должен вернуться, не зависнув на фоновой горутине
}
