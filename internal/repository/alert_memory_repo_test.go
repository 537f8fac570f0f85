package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"signal-alert-engine/internal/model"
	"signal-alert-engine/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAlert(id, owner, asset string) *model.PriceAlert {
	return &model.PriceAlert{
		ID:          id,
		Owner:       owner,
		Kind:        "manual",
		AssetID:     asset,
		Condition:   "above",
		TargetPrice: 100,
		Currency:    "eur",
		Active:      true,
	}
}

func TestAlertMemoryRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewAlertMemoryRepository()

	require.NoError(t, repo.Create(ctx, newAlert("a1", "alice", "bitcoin")))
	require.NoError(t, repo.Create(ctx, newAlert("a2", "bob", "ethereum")))
	assert.Error(t, repo.Create(ctx, newAlert("a1", "alice", "bitcoin")), "duplicate id")

	got, err := repo.FindByID(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Owner)

	missing, err := repo.FindByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := repo.List(ctx, model.GetPriceAlertParam{Owner: utils.ToPointer("alice")})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a1", list[0].ID)

	got.TargetPrice = 120
	ok, err := repo.Update(ctx, got)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Update(ctx, newAlert("nope", "alice", "bitcoin"))
	require.NoError(t, err)
	assert.False(t, ok)

	deleted, err := repo.Delete(ctx, "a2")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, "a2")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestAlertMemoryRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewAlertMemoryRepository()
	require.NoError(t, repo.Create(ctx, newAlert("a1", "alice", "bitcoin")))

	got, err := repo.FindByID(ctx, "a1")
	require.NoError(t, err)
	got.TargetPrice = 1

	again, err := repo.FindByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, again.TargetPrice)
}

func TestAlertMemoryRepository_MarkNotifiedIsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	repo := NewAlertMemoryRepository()
	require.NoError(t, repo.Create(ctx, newAlert("a1", "alice", "bitcoin")))

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.MarkNotified(ctx, "a1", time.Now(), 101)
			assert.NoError(t, err)
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)

	a, err := repo.FindByID(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, a.IsTriggered())
	assert.Equal(t, 101.0, *a.TriggeredPrice)

	a.TargetPrice = 5
	ok, err := repo.Update(ctx, a)
	require.NoError(t, err)
	assert.False(t, ok, "triggered alerts are immutable")
}

func TestAlertMemoryRepository_MarkNotifiedSkipsInactive(t *testing.T) {
	ctx := context.Background()
	repo := NewAlertMemoryRepository()
	a := newAlert("a1", "alice", "bitcoin")
	a.Active = false
	require.NoError(t, repo.Create(ctx, a))

	ok, err := repo.MarkNotified(ctx, "a1", time.Now(), 101)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAlertMemoryRepository_DeleteTriggeredBefore(t *testing.T) {
	ctx := context.Background()
	repo := NewAlertMemoryRepository()
	for _, id := range []string{"old", "recent", "pending"} {
		require.NoError(t, repo.Create(ctx, newAlert(id, "alice", "bitcoin")))
	}
	now := time.Now()
	_, err := repo.MarkNotified(ctx, "old", now.AddDate(0, 0, -40), 1)
	require.NoError(t, err)
	_, err = repo.MarkNotified(ctx, "recent", now.AddDate(0, 0, -1), 1)
	require.NoError(t, err)

	n, err := repo.DeleteTriggeredBefore(ctx, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	list, err := repo.List(ctx, model.GetPriceAlertParam{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
