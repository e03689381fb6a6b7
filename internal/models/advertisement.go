package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Advertisement status values.
const (
	AdStatusActive = "active"
	AdStatusPaused = "paused"
	AdStatusEnded  = "ended"
)

// AdSchedule is the serving window of an advertisement.
type AdSchedule struct {
	StartDate time.Time `bson:"start_date" json:"startDate"`
	EndDate   time.Time `bson:"end_date" json:"endDate"`
}

// AdMetrics holds gross serving metrics. Impressions count serve batches,
// not unique viewers.
type AdMetrics struct {
	Impressions int64   `bson:"impressions" json:"impressions"`
	Clicks      int64   `bson:"clicks" json:"clicks"`
	Conversions int64   `bson:"conversions" json:"conversions"`
	Spend       float64 `bson:"spend" json:"spend"`
}

// Advertisement represents a paid campaign.
type Advertisement struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AdvertiserID primitive.ObjectID `bson:"advertiser_id" json:"advertiserId"`
	Title        string             `bson:"title" json:"title"`
	MediaURL     string             `bson:"media_url" json:"mediaUrl"`
	TargetURL    string             `bson:"target_url" json:"targetUrl"`

	Status   string     `bson:"status" json:"status"`
	Schedule AdSchedule `bson:"schedule" json:"schedule"`
	Metrics  AdMetrics  `bson:"metrics" json:"metrics"`

	IsActive  bool      `bson:"is_active" json:"-"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// ActiveFlag reports the soft-delete state.
func (a *Advertisement) ActiveFlag() bool { return a.IsActive }

// Expiry reports no natural expiry for ads; eligibility is governed by
// the schedule window instead.
func (a *Advertisement) Expiry() (time.Time, bool) { return time.Time{}, false }

// Servable reports whether the ad is eligible for serving at now.
func (a *Advertisement) Servable(now time.Time) bool {
	if a.Status != AdStatusActive || !a.IsActive {
		return false
	}
	return !now.Before(a.Schedule.StartDate) && !now.After(a.Schedule.EndDate)
}
