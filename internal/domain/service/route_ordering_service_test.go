package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TourRoute-App/internal/domain/model"
)

func indexOf(t *testing.T, svc *RouteOrderingService, id string) int {
	t.Helper()
	st, ok := svc.Find(id)
	require.True(t, ok, "stop %s not found", id)
	return st.OrderIndex
}

func TestRouteOrderingService_Insert(t *testing.T) {
	ctx := context.Background()

	t.Run("末尾に追加", func(t *testing.T) {
		repo := &fakeOrderRepo{}
		svc := NewRouteOrderingService("tour-1", stopsFor("a", "b"), repo)

		require.NoError(t, svc.Append(ctx, model.Stop{ID: "c"}))
		assert.Equal(t, []string{"a", "b", "c"}, svc.StopIDs())
		assert.Equal(t, 2, indexOf(t, svc, "c"))
		assert.Equal(t, []string{"a", "b", "c"}, repo.last())
	})

	t.Run("途中に挿入すると後続がずれる", func(t *testing.T) {
		svc := NewRouteOrderingService("tour-1", stopsFor("a", "b", "c"), &fakeOrderRepo{})

		require.NoError(t, svc.Insert(ctx, model.Stop{ID: "x"}, 1))
		assert.Equal(t, []string{"a", "x", "b", "c"}, svc.StopIDs())
		assert.Equal(t, 2, indexOf(t, svc, "b"))
		assert.Equal(t, 3, indexOf(t, svc, "c"))
	})

	t.Run("先頭に挿入", func(t *testing.T) {
		svc := NewRouteOrderingService("tour-1", stopsFor("a"), &fakeOrderRepo{})
		require.NoError(t, svc.Insert(ctx, model.Stop{ID: "x"}, 0))
		assert.Equal(t, []string{"x", "a"}, svc.StopIDs())
	})

	t.Run("範囲外は InvalidIndex で変更なし", func(t *testing.T) {
		repo := &fakeOrderRepo{}
		svc := NewRouteOrderingService("tour-1", stopsFor("a", "b"), repo)

		err := svc.Insert(ctx, model.Stop{ID: "x"}, 3)
		assert.ErrorIs(t, err, model.ErrInvalidIndex)
		err = svc.Insert(ctx, model.Stop{ID: "x"}, -1)
		assert.ErrorIs(t, err, model.ErrInvalidIndex)

		assert.Equal(t, []string{"a", "b"}, svc.StopIDs())
		assert.Empty(t, repo.calls)
	})
}

func TestRouteOrderingService_Remove(t *testing.T) {
	ctx := context.Background()

	t.Run("後続が詰められる", func(t *testing.T) {
		repo := &fakeOrderRepo{}
		svc := NewRouteOrderingService("tour-1", stopsFor("a", "b", "c", "d"), repo)

		require.NoError(t, svc.Remove(ctx, "b"))
		assert.Equal(t, []string{"a", "c", "d"}, svc.StopIDs())
		assert.Equal(t, 1, indexOf(t, svc, "c"))
		assert.Equal(t, 2, indexOf(t, svc, "d"))
		assert.Equal(t, []string{"a", "c", "d"}, repo.last())
	})

	t.Run("存在しないストップは NotFound", func(t *testing.T) {
		repo := &fakeOrderRepo{}
		svc := NewRouteOrderingService("tour-1", stopsFor("a"), repo)

		assert.ErrorIs(t, svc.Remove(ctx, "zzz"), model.ErrNotFound)
		assert.Equal(t, 1, svc.Len())
		assert.Empty(t, repo.calls)
	})
}

func TestRouteOrderingService_Move(t *testing.T) {
	ctx := context.Background()

	t.Run("先頭を1番目へ移動", func(t *testing.T) {
		svc := NewRouteOrderingService("tour-1", stopsFor("a", "b", "c"), &fakeOrderRepo{})

		require.NoError(t, svc.Move(ctx, "a", 1))
		assert.Equal(t, []string{"b", "a", "c"}, svc.StopIDs())
		assert.Equal(t, 1, indexOf(t, svc, "a"))
		assert.Equal(t, 0, indexOf(t, svc, "b"))
		assert.True(t, HasContiguousOrder(svc.Stops()))
	})

	t.Run("後ろから前へ移動", func(t *testing.T) {
		svc := NewRouteOrderingService("tour-1", stopsFor("a", "b", "c", "d"), &fakeOrderRepo{})

		require.NoError(t, svc.Move(ctx, "d", 1))
		assert.Equal(t, []string{"a", "d", "b", "c"}, svc.StopIDs())
	})

	t.Run("同じ位置への移動も保存される", func(t *testing.T) {
		repo := &fakeOrderRepo{}
		svc := NewRouteOrderingService("tour-1", stopsFor("a", "b"), repo)

		require.NoError(t, svc.Move(ctx, "b", 1))
		assert.Equal(t, []string{"a", "b"}, svc.StopIDs())
		assert.Len(t, repo.calls, 1)
	})

	t.Run("範囲外は InvalidIndex", func(t *testing.T) {
		svc := NewRouteOrderingService("tour-1", stopsFor("a", "b", "c"), &fakeOrderRepo{})

		assert.ErrorIs(t, svc.Move(ctx, "a", 3), model.ErrInvalidIndex)
		assert.ErrorIs(t, svc.Move(ctx, "a", -1), model.ErrInvalidIndex)
		assert.Equal(t, []string{"a", "b", "c"}, svc.StopIDs())
	})

	t.Run("存在しないストップは NotFound", func(t *testing.T) {
		svc := NewRouteOrderingService("tour-1", stopsFor("a"), &fakeOrderRepo{})
		assert.ErrorIs(t, svc.Move(ctx, "zzz", 0), model.ErrNotFound)
	})
}

func TestRouteOrderingService_PersistenceFailureKeepsLocalState(t *testing.T) {
	ctx := context.Background()
	repo := &fakeOrderRepo{err: errStoreDown}
	svc := NewRouteOrderingService("tour-1", stopsFor("a", "b", "c"), repo)

	err := svc.Move(ctx, "c", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrPersistenceFailure)
	assert.ErrorIs(t, err, errStoreDown)

	var perr *model.PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "persist order", perr.Op)

	assert.Equal(t, []string{"c", "a", "b"}, svc.StopIDs())
	assert.True(t, HasContiguousOrder(svc.Stops()))
}

func TestRouteOrderingService_NormalizesLoadedOrder(t *testing.T) {
	stops := []model.Stop{
		{ID: "c", OrderIndex: 7},
		{ID: "a", OrderIndex: 0},
		{ID: "b", OrderIndex: 3},
	}
	svc := NewRouteOrderingService("tour-1", stops, nil)

	assert.Equal(t, []string{"a", "b", "c"}, svc.StopIDs())
	assert.True(t, HasContiguousOrder(svc.Stops()))
	assert.Equal(t, 7, stops[0].OrderIndex, "caller slice must not be modified")
}

func TestRouteOrderingService_Update(t *testing.T) {
	svc := NewRouteOrderingService("tour-1", stopsFor("a", "b"), nil)

	err := svc.Update("b", func(st *model.Stop) {
		st.DwellSeconds = 120
		st.OrderIndex = 99
	})
	require.NoError(t, err)

	st, _ := svc.Find("b")
	assert.Equal(t, 120, st.DwellSeconds)
	assert.Equal(t, 1, st.OrderIndex)

	assert.ErrorIs(t, svc.Update("zzz", func(*model.Stop) {}), model.ErrNotFound)
}

func TestRouteOrderingService_InvariantUnderRandomOperations(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	repo := &fakeOrderRepo{}
	svc := NewRouteOrderingService("tour-1", nil, repo)

	next := 0
	for i := 0; i < 2000; i++ {
		n := svc.Len()
		switch op := rng.Intn(3); {
		case op == 0 || n == 0:
			next++
			_ = svc.Insert(ctx, model.Stop{ID: fmt.Sprintf("s%d", next)}, rng.Intn(n+2))
		case op == 1:
			ids := svc.StopIDs()
			_ = svc.Remove(ctx, ids[rng.Intn(n)])
		default:
			ids := svc.StopIDs()
			_ = svc.Move(ctx, ids[rng.Intn(n)], rng.Intn(n+1))
		}

		stops := svc.Stops()
		got := make([]int, len(stops))
		for j, st := range stops {
			got[j] = st.OrderIndex
		}
		sort.Ints(got)
		for j := range got {
			require.Equal(t, j, got[j], "order_index must be contiguous after op %d", i)
		}
		if len(repo.calls) > 0 {
			require.Equal(t, svc.StopIDs(), repo.last())
		}
	}
}
