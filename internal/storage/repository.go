package storage

import (
	"context"

	"torrentbot/internal/domain"
)

// Repository holds per-user bot state: last search, size filter and the
// log of added torrents.
type Repository interface {
	// SaveSearch records query as the user's most recent search, replacing any earlier one.
	SaveSearch(ctx context.Context, userID int64, query string) error

	// LastSearch returns the user's most recent search and whether one exists.
	LastSearch(ctx context.Context, userID int64) (string, bool, error)

	// SavePreference stores or replaces the user's size filter.
	SavePreference(ctx context.Context, pref domain.UserPreference) error

	// Preference returns the user's size filter, or domain.DefaultPreference if none was set.
	Preference(ctx context.Context, userID int64) (domain.UserPreference, error)

	// AppendAddition adds an entry to the end of the user's added-torrents log.
	AppendAddition(ctx context.Context, userID int64, added domain.AddedTorrent) error

	// Additions returns the user's added-torrents log, oldest first.
	Additions(ctx context.Context, userID int64) ([]domain.AddedTorrent, error)

	// Stats returns how many users have a search recorded and the total number of added torrents.
	Stats(ctx context.Context) (Stats, error)

	// Close releases the underlying store.
	Close() error
}

// Stats summarises stored state across all users.
type Stats struct {
	Searches  int
	Additions int
}
