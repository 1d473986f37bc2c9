package post

import (
	"time"

	"github.com/google/uuid"

	"github.com/techtonic-plates-blog/posts-service/internal/tag"
)

type Status string

const (
	StatusDraft     Status = "Draft"
	StatusPublished Status = "Published"
	StatusArchived  Status = "Archived"
	StatusRemoved   Status = "Removed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived, StatusRemoved:
		return true
	}
	return false
}

// Post is the row model. The title_search and author_search tsvector columns
// are generated by the database (see internal/migrate) and deliberately kept
// out of the struct so they can never be written by a client.
type Post struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Slug         string     `gorm:"uniqueIndex;size:200" json:"slug"`
	Title        string     `gorm:"size:200" json:"title"`
	Subheading   string     `gorm:"size:300" json:"subheading"`
	Body         string     `gorm:"type:text" json:"body"`
	Author       string     `gorm:"size:200" json:"author"`
	HeroImage    *string    `gorm:"size:512" json:"hero_image,omitempty"`
	CreatedBy    uuid.UUID  `gorm:"type:uuid" json:"created_by"`
	CreationTime time.Time  `json:"creation_time"`
	LastEdit     *time.Time `json:"last_edit,omitempty"`
	Status       Status     `gorm:"size:16;default:Draft" json:"status"`
	Tags         []tag.Tag  `gorm:"many2many:post_tags;" json:"tags"`
}
