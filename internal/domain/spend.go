package domain

import "time"

// ItemType distinguishes promotable catalog items.
type ItemType string

const (
	ItemTypeTour       ItemType = "tour"
	ItemTypeRestaurant ItemType = "restaurant"
)

// ValidItemType reports whether t names a promotable item type.
func ValidItemType(t ItemType) bool {
	return t == ItemTypeTour || t == ItemTypeRestaurant
}

// ScoreCategoryAll is the default category a spend counts toward.
const ScoreCategoryAll = "all"

// SpendEvent is one immutable row of the promotion ledger. Once written
// it is never mutated or deleted; all scores derive from these rows.
type SpendEvent struct {
	ID            string
	UserID        string
	ItemID        string
	ItemType      ItemType
	ScoreCategory string
	Points        int
	CreatedAt     time.Time
}
