package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review is one account's rating of a service. At most one review per
// (service, account) pair.
type Review struct {
	User    primitive.ObjectID `bson:"user" json:"user"`
	Rating  int                `bson:"rating" json:"rating"`
	Comment string             `bson:"comment" json:"comment"`
	At      time.Time          `bson:"at" json:"at"`
}

// Rating aggregates a service's reviews. Count and Sum are maintained in
// the same document update that pushes the review, so the mean they derive
// is always exact.
type Rating struct {
	Count   int64    `bson:"count" json:"count"`
	Sum     int64    `bson:"sum" json:"-"`
	Reviews []Review `bson:"reviews" json:"reviews"`
}

// Average returns the mean review rating, 0 when unreviewed.
func (r Rating) Average() float64 {
	if r.Count == 0 {
		return 0
	}
	return float64(r.Sum) / float64(r.Count)
}

// Service represents a marketplace listing offered by a provider account.
type Service struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProviderID  primitive.ObjectID `bson:"provider_id" json:"providerId"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Category    string             `bson:"category" json:"category"`
	Price       float64            `bson:"price" json:"price"`

	Rating Rating `bson:"rating" json:"rating"`

	IsActive  bool      `bson:"is_active" json:"-"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// ActiveFlag reports the soft-delete state.
func (s *Service) ActiveFlag() bool { return s.IsActive }

// Expiry reports no natural expiry for services.
func (s *Service) Expiry() (time.Time, bool) { return time.Time{}, false }

// ReviewedBy reports whether id has already reviewed the service.
func (s *Service) ReviewedBy(id primitive.ObjectID) bool {
	for _, r := range s.Rating.Reviews {
		if r.User == id {
			return true
		}
	}
	return false
}
