package cache

import (
	"context"
	"testing"
	"time"

	"github.com/bournewang/ai-hedge-fund/internal/domain/models"
	pkgcache "github.com/bournewang/ai-hedge-fund/pkg/cache"
)

func view(sourceKey string) *models.DatasetView {
	return &models.DatasetView{
		SourceKey:   sourceKey,
		RunID:       "run-1",
		Tickers:     []string{"AAPL"},
		TotalTokens: 512,
		UpdatedAt:   time.Now().UTC().Truncate(time.Second),
		Entries: []models.TickerAnalysisView{{
			TickerAnalysis: models.TickerAnalysis{Ticker: "AAPL", Action: models.ActionBuy},
		}},
	}
}

func TestResultsCacheRoundTrip(t *testing.T) {
	rc := NewResultsCache(pkgcache.NewMemoryCache(), WithTTL(time.Minute))
	ctx := context.Background()

	if _, ok, err := rc.GetView(ctx, "manual"); err != nil || ok {
		t.Fatalf("expected clean miss, ok=%v err=%v", ok, err)
	}
	if err := rc.PutView(ctx, "manual", view("manual")); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := rc.GetView(ctx, "manual")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.SourceKey != "manual" || len(got.Entries) != 1 || got.Entries[0].Ticker != "AAPL" {
		t.Fatalf("view = %+v", got)
	}

	stats := rc.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Sets != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.HitRate != 0.5 {
		t.Fatalf("hit rate = %v", stats.HitRate)
	}
}

func TestResultsCacheInvalidate(t *testing.T) {
	rc := NewResultsCache(pkgcache.NewMemoryCache())
	ctx := context.Background()

	if err := rc.PutView(ctx, "manual", view("manual")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := rc.Invalidate(ctx, "manual"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := rc.GetView(ctx, "manual"); ok {
		t.Fatal("entry survived invalidation")
	}
}

func TestResultsCacheClearResetsStats(t *testing.T) {
	rc := NewResultsCache(pkgcache.NewMemoryCache())
	ctx := context.Background()

	rc.PutView(ctx, "a", view("a"))
	rc.GetView(ctx, "a")
	rc.GetView(ctx, "missing")

	if err := rc.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	stats := rc.Stats()
	if stats.Hits != 0 || stats.Misses != 0 || stats.Sets != 0 {
		t.Fatalf("stats not reset: %+v", stats)
	}
	if _, ok, _ := rc.GetView(ctx, "a"); ok {
		t.Fatal("entry survived clear")
	}
}
