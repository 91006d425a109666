package domain

import "time"

// LeaderboardEntry is one ranked row of an aggregated leaderboard.
type LeaderboardEntry struct {
	Rank        int
	ItemID      string
	ItemType    ItemType
	TotalPoints int64
	LastEventAt time.Time
}

// EntryLess is the canonical leaderboard ordering: total points
// descending, then the instant the item reached its current total
// ascending (the earlier achiever outranks later ties), then item id
// ascending as a deterministic fallback. The SQL ranking query mirrors
// this rule; keep the two in sync.
func EntryLess(a, b LeaderboardEntry) bool {
	if a.TotalPoints != b.TotalPoints {
		return a.TotalPoints > b.TotalPoints
	}
	if !a.LastEventAt.Equal(b.LastEventAt) {
		return a.LastEventAt.Before(b.LastEventAt)
	}
	return a.ItemID < b.ItemID
}

// LeaderboardQuery bounds a leaderboard read. A zero Since means the
// all-time board; a non-zero Since restricts aggregation to spend events
// at or after that instant (the "Trending Now" window).
type LeaderboardQuery struct {
	ItemType ItemType // empty means all types
	Since    time.Time
	Limit    int
	Offset   int
}
