package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/circleapp/circle/internal/models"
)

func TestAdServable(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	window := models.AdSchedule{StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour)}

	tests := []struct {
		name string
		ad   models.Advertisement
		want bool
	}{
		{
			name: "active in window",
			ad:   models.Advertisement{Status: models.AdStatusActive, Schedule: window, IsActive: true},
			want: true,
		},
		{
			name: "paused in window",
			ad:   models.Advertisement{Status: models.AdStatusPaused, Schedule: window, IsActive: true},
			want: false,
		},
		{
			name: "active before window",
			ad: models.Advertisement{
				Status:   models.AdStatusActive,
				Schedule: models.AdSchedule{StartDate: now.Add(time.Hour), EndDate: now.Add(2 * time.Hour)},
				IsActive: true,
			},
			want: false,
		},
		{
			name: "active after window",
			ad: models.Advertisement{
				Status:   models.AdStatusActive,
				Schedule: models.AdSchedule{StartDate: now.Add(-2 * time.Hour), EndDate: now.Add(-time.Hour)},
				IsActive: true,
			},
			want: false,
		},
		{
			name: "soft-deleted",
			ad:   models.Advertisement{Status: models.AdStatusActive, Schedule: window, IsActive: false},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ad.Servable(now); got != tt.want {
				t.Errorf("Servable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestServeCountsGrossImpressions(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	ads := NewAds(store, NewLedger(store), newTestCache())

	now := time.Now()
	advertiser := store.addAccount("advertiser")
	ad := store.addAd(advertiser.ID, models.AdStatusActive, now.Add(-time.Hour), now.Add(time.Hour))
	store.addAd(advertiser.ID, models.AdStatusPaused, now.Add(-time.Hour), now.Add(time.Hour))

	served, err := ads.Serve(ctx, 10)
	if err != nil {
		t.Fatalf("Serve() error: %v", err)
	}
	if len(served) != 1 {
		t.Fatalf("Serve() returned %d ads, want 1", len(served))
	}
	if served[0].ID != ad.ID {
		t.Error("Serve() should return the eligible ad")
	}

	// Gross counting: a second serve batch counts again
	if _, err := ads.Serve(ctx, 10); err != nil {
		t.Fatalf("second Serve() error: %v", err)
	}
	if ad.Metrics.Impressions != 2 {
		t.Errorf("impressions after two serves = %d, want 2", ad.Metrics.Impressions)
	}
}

func TestServeInvalidLimit(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	ads := NewAds(store, NewLedger(store), newTestCache())

	if _, err := ads.Serve(ctx, 0); !errors.Is(err, ErrInvalid) {
		t.Errorf("Serve(0) error = %v, want ErrInvalid", err)
	}
}

func TestRecordClickAndConversion(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	ads := NewAds(store, NewLedger(store), newTestCache())

	now := time.Now()
	advertiser := store.addAccount("advertiser")
	ad := store.addAd(advertiser.ID, models.AdStatusActive, now.Add(-time.Hour), now.Add(time.Hour))

	if err := ads.RecordClick(ctx, ad.ID); err != nil {
		t.Fatalf("RecordClick() error: %v", err)
	}
	if err := ads.RecordConversion(ctx, ad.ID); err != nil {
		t.Fatalf("RecordConversion() error: %v", err)
	}
	if ad.Metrics.Clicks != 1 || ad.Metrics.Conversions != 1 {
		t.Errorf("metrics = %+v, want clicks=1 conversions=1", ad.Metrics)
	}
}

func TestRecordClickUnknownAd(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	ads := NewAds(store, NewLedger(store), newTestCache())

	advertiser := store.addAccount("advertiser")
	ad := store.addAd(advertiser.ID, models.AdStatusActive, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	ad.IsActive = false

	if err := ads.RecordClick(ctx, ad.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("RecordClick(soft-deleted ad) error = %v, want ErrNotFound", err)
	}
}
