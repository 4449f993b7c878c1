package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeStats struct {
	calls int
	stats Stats
}

func (f *fakeStats) CollectStats(context.Context) (Stats, error) {
	f.calls++
	return f.stats, nil
}

func (f *fakeStats) SalesByDay(_ context.Context, days int) ([]ChartPoint, error) {
	points := make([]ChartPoint, days)
	for i := range points {
		points[i] = ChartPoint{Day: time.Now().AddDate(0, 0, i-days+1).Format("2006-01-02")}
	}
	return points, nil
}

func newTestService(t *testing.T) (*Service, *fakeStats) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := &fakeStats{stats: Stats{TotalProducts: 12, TodaySales: 340.5, TotalCustomers: 4}}
	return NewService(repo, client, time.Minute), repo
}

func TestStatsCachesSnapshot(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	first, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(12), first.TotalProducts)
	require.Equal(t, 1, repo.calls)

	second, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, first.TotalProducts, second.TotalProducts)
	require.Equal(t, 1, repo.calls, "second read must come from cache")
}

func TestRefreshRewritesCache(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Stats(ctx)
	require.NoError(t, err)

	repo.stats.TotalProducts = 99
	refreshed, err := svc.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(99), refreshed.TotalProducts)

	cached, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(99), cached.TotalProducts)
	require.Equal(t, 2, repo.calls)
}

func TestSalesTrendClampsWindow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	points, err := svc.SalesTrend(ctx, 0)
	require.NoError(t, err)
	require.Len(t, points, 7)

	points, err = svc.SalesTrend(ctx, 400)
	require.NoError(t, err)
	require.Len(t, points, 7)

	points, err = svc.SalesTrend(ctx, 30)
	require.NoError(t, err)
	require.Len(t, points, 30)
}
