package model

import "time"

// BlogPost is a marketing-site article managed from the admin console.
// Unpublished posts are visible only through the admin API.
type BlogPost struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Excerpt   string    `json:"excerpt"`
	Content   string    `json:"content"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
