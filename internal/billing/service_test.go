package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"acdispatch/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockUsageRepo struct {
	mock.Mock
}

func (m *mockUsageRepo) CreateRecord(ctx context.Context, record *db.UsageRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *mockUsageRepo) ListByRoom(ctx context.Context, roomID int, uncheckedOnly bool) ([]db.UsageRecord, error) {
	args := m.Called(ctx, roomID, uncheckedOnly)
	records, _ := args.Get(0).([]db.UsageRecord)
	return records, args.Error(1)
}

func (m *mockUsageRepo) TotalFee(ctx context.Context, roomID int, uncheckedOnly bool) (float64, error) {
	args := m.Called(ctx, roomID, uncheckedOnly)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockUsageRepo) Checkout(ctx context.Context, roomID int) (float64, int64, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(float64), args.Get(1).(int64), args.Error(2)
}

func records() []db.UsageRecord {
	t0 := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	at := func(min int) time.Time { return t0.Add(time.Duration(min) * time.Minute) }
	return []db.UsageRecord{
		{ID: "a", RoomID: 1, BeginTime: at(0), EndTime: at(2), BeginTemp: 30, EndTemp: 29, Speed: "medium", Fee: 1},
		// 与上一条首尾相接, 同风速: 合并
		{ID: "b", RoomID: 1, BeginTime: at(2), EndTime: at(4), BeginTemp: 29, EndTemp: 28, Speed: "medium", Fee: 1},
		// 风速变化: 新条目
		{ID: "c", RoomID: 1, BeginTime: at(4), EndTime: at(5), BeginTemp: 28, EndTemp: 27, Speed: "high", Fee: 1},
		// 中间有间隔: 新条目
		{ID: "d", RoomID: 1, BeginTime: at(9), EndTime: at(10), BeginTemp: 28.5, EndTemp: 27.5, Speed: "high", Fee: 1},
	}
}

func TestMergeContiguous(t *testing.T) {
	merged := MergeContiguous(records())
	require.Len(t, merged, 3)

	assert.Equal(t, 2, merged[0].Records)
	assert.Equal(t, 30.0, merged[0].BeginTemp)
	assert.Equal(t, 28.0, merged[0].EndTemp)
	assert.InDelta(t, 2.0, merged[0].Fee, 1e-12)
	assert.Equal(t, records()[1].EndTime, merged[0].EndTime)

	assert.Equal(t, "high", merged[1].Speed)
	assert.Equal(t, 1, merged[2].Records)

	assert.Empty(t, MergeContiguous(nil))
}

func TestBillingService(t *testing.T) {
	ctx := context.Background()

	t.Run("details", func(t *testing.T) {
		repo := &mockUsageRepo{}
		repo.On("ListByRoom", ctx, 1, false).Return(records(), nil)
		svc := NewBillingService(repo)

		raw, err := svc.Details(ctx, 1, false)
		require.NoError(t, err)
		assert.Len(t, raw, 4)

		merged, err := svc.Details(ctx, 1, true)
		require.NoError(t, err)
		assert.Len(t, merged, 3)
	})

	t.Run("checkout", func(t *testing.T) {
		repo := &mockUsageRepo{}
		repo.On("Checkout", ctx, 2).Return(12.5, int64(4), nil).Once()
		svc := NewBillingService(repo)

		summary, err := svc.Checkout(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, Summary{RoomID: 2, Total: 12.5, Records: 4}, summary)
		repo.AssertExpectations(t)
	})

	t.Run("repository error", func(t *testing.T) {
		repo := &mockUsageRepo{}
		repo.On("Checkout", ctx, 3).Return(0.0, int64(0), errors.New("locked"))
		svc := NewBillingService(repo)

		_, err := svc.Checkout(ctx, 3)
		assert.Error(t, err)
		repo.AssertNotCalled(t, "TotalFee", ctx, 3, true)
	})
}
