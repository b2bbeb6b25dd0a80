package models

import (
	"encoding/json"
	"time"
)

// Category is a named group of canned responses. Templates are owned by their category.
type Category struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Templates []Template `json:"templates"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Template is a reusable text snippet. Its ID is unique within its category only.
type Template struct {
	ID   string   `json:"id"`
	Text string   `json:"text"`
	Tags []string `json:"tags"`

	// JSON string field for DB storage
	TagsJSON string `json:"-"`
}

// PrepareForSave marshals Tags into TagsJSON for storage.
func (t *Template) PrepareForSave() {
	if t.Tags == nil {
		t.Tags = []string{}
	}
	tagsBytes, _ := json.Marshal(t.Tags)
	t.TagsJSON = string(tagsBytes)
}

// PrepareForAPI unmarshals TagsJSON into Tags.
func (t *Template) PrepareForAPI() {
	t.Tags = []string{}
	if t.TagsJSON != "" {
		json.Unmarshal([]byte(t.TagsJSON), &t.Tags)
	}
}
