package models

// Family identifies one of the entity families backed by its own collection.
type Family string

const (
	FamilyAccount       Family = "account"
	FamilyPost          Family = "post"
	FamilyComment       Family = "comment"
	FamilyStory         Family = "story"
	FamilyService       Family = "service"
	FamilyAdvertisement Family = "advertisement"
)

// Families lists every entity family in collection order.
var Families = []Family{
	FamilyAccount,
	FamilyPost,
	FamilyComment,
	FamilyStory,
	FamilyService,
	FamilyAdvertisement,
}

// Valid reports whether f names a known entity family.
func (f Family) Valid() bool {
	switch f {
	case FamilyAccount, FamilyPost, FamilyComment, FamilyStory, FamilyService, FamilyAdvertisement:
		return true
	}
	return false
}
