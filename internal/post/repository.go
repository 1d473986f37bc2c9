package post

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/techtonic-plates-blog/posts-service/internal/shared/db"
	"github.com/techtonic-plates-blog/posts-service/internal/shared/httpx"
	"github.com/techtonic-plates-blog/posts-service/internal/tag"
)

// Repository separates reads, which need no transaction, from writes, which
// always run on the transaction handle passed in by the coordinator.
type Repository interface {
	GetBySlug(ctx context.Context, slug string) (*Post, error)
	BulkGetBySlugs(ctx context.Context, slugs []string) ([]Post, error)
	List(ctx context.Context, f Filter) ([]Post, *int64, error)

	Insert(tx *gorm.DB, p *Post) error
	Update(tx *gorm.DB, p *Post) error
	ReplaceTags(tx *gorm.DB, p *Post, tags []tag.Tag) error
	Delete(tx *gorm.DB, p *Post) error
}

type repository struct{ store *db.Store }

func NewRepository(s *db.Store) Repository { return &repository{store: s} }

func (r *repository) GetBySlug(ctx context.Context, slug string) (*Post, error) {
	var p Post
	err := r.store.Base.WithContext(ctx).
		Preload("Tags").
		Where("slug = ?", slug).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("post %q: %w", slug, httpx.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) BulkGetBySlugs(ctx context.Context, slugs []string) ([]Post, error) {
	if len(slugs) == 0 {
		return []Post{}, nil
	}
	q := r.store.Base.WithContext(ctx).Model(&Post{}).Preload("Tags")
	for _, c := range (Filter{Slugs: slugs}).conditions() {
		q = q.Where(c.expr, c.args...)
	}
	var posts []Post
	err := q.Order("creation_time DESC").Find(&posts).Error
	return posts, err
}

func (r *repository) List(ctx context.Context, f Filter) ([]Post, *int64, error) {
	var count *int64
	if f.WithCount {
		q := r.store.Base.WithContext(ctx).Model(&Post{})
		for _, c := range f.conditions() {
			q = q.Where(c.expr, c.args...)
		}
		var n int64
		if err := q.Count(&n).Error; err != nil {
			return nil, nil, err
		}
		count = &n
	}

	q := r.store.Base.WithContext(ctx).Model(&Post{}).Preload("Tags")
	for _, c := range f.conditions() {
		q = q.Where(c.expr, c.args...)
	}
	var posts []Post
	err := q.Order("creation_time DESC").
		Limit(f.limit()).
		Offset(f.offset()).
		Find(&posts).Error
	if err != nil {
		return nil, nil, err
	}
	return posts, count, nil
}

// Insert writes the post row only; associations go through ReplaceTags so
// the registrar stays the single place that creates tags.
func (r *repository) Insert(tx *gorm.DB, p *Post) error {
	if err := tx.Omit("Tags").Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("slug %q already taken: %w", p.Slug, httpx.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *repository) Update(tx *gorm.DB, p *Post) error {
	if err := tx.Omit("Tags").Save(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("slug %q already taken: %w", p.Slug, httpx.ErrConflict)
		}
		return err
	}
	return nil
}

// ReplaceTags swaps the full association set: old rows out, one row per tag
// in. Tag rows themselves are left alone.
func (r *repository) ReplaceTags(tx *gorm.DB, p *Post, tags []tag.Tag) error {
	return tx.Model(p).Association("Tags").Replace(&tags)
}

func (r *repository) Delete(tx *gorm.DB, p *Post) error {
	if err := tx.Model(p).Association("Tags").Clear(); err != nil {
		return err
	}
	return tx.Delete(p).Error
}
