package models

import "time"

// PNCategory is a private note category. Only its owner can see or change it.
type PNCategory struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	OwnerID   string    `json:"userId"`
	Notes     []Note    `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
}

// Note is a private note. Its ID is unique within its category only.
type Note struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}
