// Package model defines the data structures used throughout the application.
package model

import "time"

// Document is a user-owned plain-text document.
//
// The record store is the authoritative copy; everything the rest of the
// application holds (the per-session workspace cache, the admin console
// mirror) is a transient read cache that can be invalidated and reloaded
// at any time.
//
// OwnerID is immutable after creation and UpdatedAt never precedes
// CreatedAt; the repository enforces both.
type Document struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
