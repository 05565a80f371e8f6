package models

import "time"

// Post is a blog entry. AuthorID never changes after creation;
// AuthorUsername is filled on reads from the users table.
type Post struct {
	ID             int64
	Title          string
	Content        string
	AuthorID       int64
	AuthorUsername string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PostPatch carries the fields of an update; nil means keep the stored value.
type PostPatch struct {
	Title   *string
	Content *string
}
