package migrate

import (
	"github.com/techtonic-plates-blog/posts-service/internal/post"
	"github.com/techtonic-plates-blog/posts-service/internal/shared/db"
	"github.com/techtonic-plates-blog/posts-service/internal/tag"
)

// Postgres keeps the search columns consistent with the source text itself,
// so the service never writes them.
var searchColumns = []string{
	`ALTER TABLE posts ADD COLUMN IF NOT EXISTS title_search tsvector
	   GENERATED ALWAYS AS (to_tsvector('english', title)) STORED`,
	`ALTER TABLE posts ADD COLUMN IF NOT EXISTS author_search tsvector
	   GENERATED ALWAYS AS (to_tsvector('english', author)) STORED`,
	`CREATE INDEX IF NOT EXISTS idx_posts_title_search ON posts USING GIN (title_search)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_author_search ON posts USING GIN (author_search)`,
}

func All(store *db.Store) error {
	if err := store.Base.AutoMigrate(&tag.Tag{}, &post.Post{}); err != nil {
		return err
	}
	for _, stmt := range searchColumns {
		if err := store.Base.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
