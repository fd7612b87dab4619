package domain

import (
	"math"
	"time"
)

// Placeholder is used for any field the index page did not provide.
const Placeholder = "N/A"

// SearchResult is a single row scraped from the index search page.
type SearchResult struct {
	// Title of the torrent as shown on the index.
	Title string `json:"title"`

	// MagnetLink is the magnet URI, or Placeholder if the row had none.
	MagnetLink string `json:"magnet_link"`

	// SizeText is the human-readable size exactly as displayed, e.g. "1.2 GiB".
	SizeText string `json:"size_text"`

	// SizeBytes is SizeText converted to bytes.
	SizeBytes float64 `json:"size_bytes"`
}

// UserPreference holds a user's search size filter, in bytes.
type UserPreference struct {
	UserID       int64   `json:"user_id"`
	MinSizeBytes float64 `json:"min_size_bytes"`
	MaxSizeBytes float64 `json:"max_size_bytes"`
}

// DefaultPreference is the filter applied when a user never ran setfilter.
func DefaultPreference(userID int64) UserPreference {
	return UserPreference{
		UserID:       userID,
		MinSizeBytes: 0,
		MaxSizeBytes: math.Inf(1),
	}
}

// AddedTorrent is an entry in a user's added-torrents log.
type AddedTorrent struct {
	Title      string    `json:"title"`
	MagnetLink string    `json:"magnet_link"`
	Size       string    `json:"size"`
	AddedAt    time.Time `json:"added_at"`
}

// ScheduledJob is a magnet link waiting to be sent to the download client.
type ScheduledJob struct {
	ID         string    `json:"id"`
	UserID     int64     `json:"user_id"`
	MagnetLink string    `json:"magnet_link"`
	FireAt     time.Time `json:"fire_at"`
}
