package models

import "time"

// Snapshot is the aggregate live state. A Snapshot is never mutated after it is built.
type Snapshot struct {
	Version      uint64
	Users        []User
	Categories   []Category
	PNCategories []PNCategory
	// Messages holds active messages; their display window is checked per render.
	Messages     []Message
	BuiltAt      time.Time
}

// View is the part of a Snapshot a single viewer may see.
type View struct {
	Me           *User          `json:"me"`
	Users        []User         `json:"users"`
	Categories   []Category     `json:"categories"`
	PNCategories []PNCategory   `json:"pnCategories"`
	Messages     []Announcement `json:"messages"`
}

// EmptyView is what unauthenticated viewers receive.
func EmptyView() View {
	return View{Users: []User{}, Categories: []Category{}, PNCategories: []PNCategory{}, Messages: []Announcement{}}
}
