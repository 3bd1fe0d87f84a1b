package storage_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack-labs/budgetguard/pkg/model"
	"github.com/fintrack-labs/budgetguard/pkg/storage"
)

func newTestStore(t *testing.T) *storage.SQLite {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func createTestBudget(t *testing.T, store *storage.SQLite, amount, threshold float64) *model.Budget {
	t.Helper()
	budget := &model.Budget{
		UserID:         "u-1",
		Category:       "groceries",
		Amount:         amount,
		Period:         model.PeriodMonthly,
		AlertThreshold: threshold,
	}
	require.NoError(t, store.CreateBudget(context.Background(), budget))
	return budget
}

func TestCreateBudget(t *testing.T) {
	store := newTestStore(t)
	budget := createTestBudget(t, store, 500, 80)

	assert.NotEmpty(t, budget.ID)
	assert.True(t, budget.IsActive)
	assert.Zero(t, budget.Spent)
	assert.Nil(t, budget.LastAlertSentAt)
}

func TestCreateBudget_DuplicateCategory(t *testing.T) {
	store := newTestStore(t)
	createTestBudget(t, store, 500, 80)

	dup := &model.Budget{
		UserID:         "u-1",
		Category:       "groceries",
		Amount:         300,
		Period:         model.PeriodMonthly,
		AlertThreshold: 50,
	}
	err := store.CreateBudget(context.Background(), dup)
	assert.ErrorIs(t, err, storage.ErrDuplicateCategory)
}

func TestCreateBudget_SameCategoryDifferentPeriod(t *testing.T) {
	store := newTestStore(t)
	createTestBudget(t, store, 500, 80)

	other := &model.Budget{
		UserID:         "u-1",
		Category:       "groceries",
		Amount:         1500,
		Period:         model.PeriodQuarterly,
		AlertThreshold: 80,
	}
	require.NoError(t, store.CreateBudget(context.Background(), other))
}

func TestCreateBudget_ReuseTupleAfterDeactivate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	budget := createTestBudget(t, store, 500, 80)

	require.NoError(t, store.Deactivate(ctx, budget.ID))

	replacement := &model.Budget{
		UserID:         "u-1",
		Category:       "groceries",
		Amount:         600,
		Period:         model.PeriodMonthly,
		AlertThreshold: 80,
	}
	require.NoError(t, store.CreateBudget(ctx, replacement))
}

func TestGetBudget_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetBudget(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAtomicIncrementSpend(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	budget := createTestBudget(t, store, 500, 80)

	got, err := store.AtomicIncrementSpend(ctx, budget.ID, 120.50)
	require.NoError(t, err)
	assert.InDelta(t, 120.50, got.Spent, 0.001)

	got, err = store.AtomicIncrementSpend(ctx, budget.ID, 79.50)
	require.NoError(t, err)
	assert.InDelta(t, 200, got.Spent, 0.001)
}

func TestAtomicIncrementSpend_ClampsAtCeiling(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	budget := createTestBudget(t, store, 500, 80)

	got, err := store.AtomicIncrementSpend(ctx, budget.ID, 600)
	require.NoError(t, err)
	assert.InDelta(t, 500, got.Spent, 0.001)
}

func TestAtomicIncrementSpend_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AtomicIncrementSpend(context.Background(), "missing", 10)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAtomicIncrementSpend_InactiveBudget(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	budget := createTestBudget(t, store, 500, 80)
	require.NoError(t, store.Deactivate(ctx, budget.ID))

	_, err := store.AtomicIncrementSpend(ctx, budget.ID, 10)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAtomicIncrementSpend_ConcurrentCallers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	budget := createTestBudget(t, store, 500, 80)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.AtomicIncrementSpend(ctx, budget.ID, 50)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.GetBudget(ctx, budget.ID)
	require.NoError(t, err)
	assert.InDelta(t, 250, got.Spent, 0.001)
}

func TestAtomicIncrementSpend_ConcurrentNeverExceedsCeiling(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	budget := createTestBudget(t, store, 500, 80)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.AtomicIncrementSpend(ctx, budget.ID, 90)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.GetBudget(ctx, budget.ID)
	require.NoError(t, err)
	assert.InDelta(t, 500, got.Spent, 0.001)
}

func TestAtomicIncrementSpend_ManyWritersNoLostUpdates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	budget := createTestBudget(t, store, 500, 80)

	// 20 x 25 sums to exactly the ceiling: a lost update or a writer
	// failing with a busy error would leave spent short of 500.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.AtomicIncrementSpend(ctx, budget.ID, 25)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.GetBudget(ctx, budget.ID)
	require.NoError(t, err)
	assert.InDelta(t, 500, got.Spent, 0.001)
}

func TestClaimAlertCooldown(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	budget := createTestBudget(t, store, 500, 80)
	now := time.Now().UTC()

	won, err := store.ClaimAlertCooldown(ctx, budget.ID, now, 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, won)

	got, err := store.GetBudget(ctx, budget.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastAlertSentAt)
	assert.WithinDuration(t, now, *got.LastAlertSentAt, time.Second)
}

func TestClaimAlertCooldown_SecondClaimLoses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	budget := createTestBudget(t, store, 500, 80)
	now := time.Now().UTC()

	won, err := store.ClaimAlertCooldown(ctx, budget.ID, now, 24*time.Hour)
	require.NoError(t, err)
	require.True(t, won)

	won, err = store.ClaimAlertCooldown(ctx, budget.ID, now.Add(time.Minute), 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, won)
}

func TestClaimAlertCooldown_SucceedsAfterWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	budget := createTestBudget(t, store, 500, 80)
	now := time.Now().UTC()

	won, err := store.ClaimAlertCooldown(ctx, budget.ID, now, 24*time.Hour)
	require.NoError(t, err)
	require.True(t, won)

	won, err = store.ClaimAlertCooldown(ctx, budget.ID, now.Add(24*time.Hour), 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, won)
}

func TestClaimAlertCooldown_ExactlyOneWinner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	budget := createTestBudget(t, store, 500, 80)
	now := time.Now().UTC()

	var wg sync.WaitGroup
	wins := make(chan bool, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := store.ClaimAlertCooldown(ctx, budget.ID, now, 24*time.Hour)
			assert.NoError(t, err)
			wins <- won
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for won := range wins {
		if won {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestClaimAlertCooldown_InactiveBudget(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	budget := createTestBudget(t, store, 500, 80)
	require.NoError(t, store.Deactivate(ctx, budget.ID))

	won, err := store.ClaimAlertCooldown(ctx, budget.ID, time.Now().UTC(), 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, won)
}

func TestUpdateBudget_FloorsAmountAtSpent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	budget := createTestBudget(t, store, 500, 80)

	_, err := store.AtomicIncrementSpend(ctx, budget.ID, 300)
	require.NoError(t, err)

	got, err := store.UpdateBudget(ctx, budget.ID, 200, 70)
	require.NoError(t, err)
	assert.InDelta(t, 300, got.Amount, 0.001)
	assert.InDelta(t, 70, got.AlertThreshold, 0.001)

	got, err = store.UpdateBudget(ctx, budget.ID, 1000, 90)
	require.NoError(t, err)
	assert.InDelta(t, 1000, got.Amount, 0.001)
}

func TestDeactivate_LeavesSpendIntact(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	budget := createTestBudget(t, store, 500, 80)

	_, err := store.AtomicIncrementSpend(ctx, budget.ID, 200)
	require.NoError(t, err)

	require.NoError(t, store.Deactivate(ctx, budget.ID))

	got, err := store.GetBudget(ctx, budget.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.InDelta(t, 200, got.Spent, 0.001)
	assert.InDelta(t, 500, got.Amount, 0.001)
}

func TestDeactivate_NotFound(t *testing.T) {
	store := newTestStore(t)
	err := store.Deactivate(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListActiveByUser_Pagination(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	categories := []string{"dining", "groceries", "rent", "transport", "utilities"}
	for _, c := range categories {
		b := &model.Budget{
			UserID:         "u-1",
			Category:       c,
			Amount:         100,
			Period:         model.PeriodMonthly,
			AlertThreshold: 80,
		}
		require.NoError(t, store.CreateBudget(ctx, b))
	}
	other := &model.Budget{
		UserID:         "u-2",
		Category:       "dining",
		Amount:         100,
		Period:         model.PeriodMonthly,
		AlertThreshold: 80,
	}
	require.NoError(t, store.CreateBudget(ctx, other))

	page1, err := store.ListActiveByUser(ctx, "u-1", 1, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, "dining", page1[0].Category)
	assert.Equal(t, "groceries", page1[1].Category)

	page3, err := store.ListActiveByUser(ctx, "u-1", 3, 2)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Equal(t, "utilities", page3[0].Category)
}

func TestListActiveByUser_ExcludesInactive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	budget := createTestBudget(t, store, 500, 80)
	require.NoError(t, store.Deactivate(ctx, budget.ID))

	budgets, err := store.ListActiveByUser(ctx, "u-1", 1, 20)
	require.NoError(t, err)
	assert.Empty(t, budgets)
}

func TestResetPeriodSpend(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	budget := createTestBudget(t, store, 500, 80)

	_, err := store.AtomicIncrementSpend(ctx, budget.ID, 450)
	require.NoError(t, err)
	won, err := store.ClaimAlertCooldown(ctx, budget.ID, time.Now().UTC(), 24*time.Hour)
	require.NoError(t, err)
	require.True(t, won)

	n, err := store.ResetPeriodSpend(ctx, model.PeriodMonthly)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := store.GetBudget(ctx, budget.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Spent)
	assert.Nil(t, got.LastAlertSentAt)
	assert.InDelta(t, 500, got.Amount, 0.001)

	n, err = store.ResetPeriodSpend(ctx, model.PeriodYearly)
	require.NoError(t, err)
	assert.Zero(t, n)
}
