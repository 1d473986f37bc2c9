package post

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/techtonic-plates-blog/posts-service/internal/auth"
	"github.com/techtonic-plates-blog/posts-service/internal/shared/httpx"
	"github.com/techtonic-plates-blog/posts-service/internal/tag"
)

// ErrNoChange signals a patch whose supplied fields all equal the current
// row. Nothing is written and last_edit is left alone.
var ErrNoChange = errors.New("no change")

// TxRunner scopes a function to a single transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EventWriter publishes post change events after a successful commit.
type EventWriter interface {
	WriteJSON(ctx context.Context, v any) error
}

type Service interface {
	Create(ctx context.Context, actor *auth.Claims, in CreateReq) (*Post, error)
	Patch(ctx context.Context, actor *auth.Claims, slug string, in PatchReq) (*Post, error)
	Delete(ctx context.Context, actor *auth.Claims, slug string) error

	GetBySlug(ctx context.Context, slug string) (*Post, error)
	BulkGetBySlugs(ctx context.Context, slugs []string) ([]Post, error)
	List(ctx context.Context, f Filter) ([]Post, *int64, error)
}

type service struct {
	repo   Repository
	tags   tag.Registrar
	tx     TxRunner
	events EventWriter
	now    func() time.Time
}

// NewService wires the coordinator. events may be nil when no broker is
// configured; mutations then simply skip publishing.
func NewService(repo Repository, tags tag.Registrar, tx TxRunner, events EventWriter) Service {
	return &service{repo: repo, tags: tags, tx: tx, events: events, now: time.Now}
}

func (s *service) Create(ctx context.Context, actor *auth.Claims, in CreateReq) (*Post, error) {
	if !actor.HasPermission(auth.CreatePost) {
		return nil, httpx.ErrForbidden
	}

	slug := DeriveSlug(in.Title)
	if slug == "" {
		return nil, fmt.Errorf("title %q yields an empty slug: %w", in.Title, httpx.ErrValidation)
	}
	status := StatusDraft
	if in.Status != "" {
		status = Status(in.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("unknown status %q: %w", in.Status, httpx.ErrValidation)
		}
	}

	owner, err := uuid.Parse(actor.Subject)
	if err != nil {
		return nil, fmt.Errorf("subject %q is not a user id: %w", actor.Subject, httpx.ErrValidation)
	}

	// Availability pre-check. Not atomic with the insert, so the unique
	// constraint on slug is what actually guarantees uniqueness; the insert
	// path translates a constraint violation into the same Conflict.
	if _, err := s.repo.GetBySlug(ctx, slug); err == nil {
		return nil, fmt.Errorf("slug %q already taken: %w", slug, httpx.ErrConflict)
	} else if !errors.Is(err, httpx.ErrNotFound) {
		return nil, err
	}

	p := &Post{
		ID:           uuid.New(),
		Slug:         slug,
		Title:        in.Title,
		Subheading:   in.Subheading,
		Body:         in.Body,
		Author:       in.Author,
		CreatedBy:    owner,
		CreationTime: s.now().UTC(),
		Status:       status,
	}
	if in.HeroImage != "" {
		p.HeroImage = &in.HeroImage
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		resolved, err := s.resolveTags(tx, in.Tags)
		if err != nil {
			return err
		}
		if err := s.repo.Insert(tx, p); err != nil {
			return err
		}
		if len(resolved) > 0 {
			if err := s.repo.ReplaceTags(tx, p, resolved); err != nil {
				return err
			}
		}
		p.Tags = resolved
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "post.created", p)
	return p, nil
}

func (s *service) Patch(ctx context.Context, actor *auth.Claims, slug string, in PatchReq) (*Post, error) {
	if !actor.HasPermission(auth.UpdatePost) {
		return nil, httpx.ErrForbidden
	}

	current, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	updated := *current
	changed := false

	if in.Title != nil && *in.Title != current.Title {
		newSlug := DeriveSlug(*in.Title)
		if newSlug == "" {
			return nil, fmt.Errorf("title %q yields an empty slug: %w", *in.Title, httpx.ErrValidation)
		}
		if newSlug != current.Slug {
			if other, err := s.repo.GetBySlug(ctx, newSlug); err == nil && other.ID != current.ID {
				return nil, fmt.Errorf("slug %q already taken: %w", newSlug, httpx.ErrConflict)
			} else if err != nil && !errors.Is(err, httpx.ErrNotFound) {
				return nil, err
			}
			updated.Slug = newSlug
		}
		updated.Title = *in.Title
		changed = true
	}
	if in.Author != nil && *in.Author != current.Author {
		updated.Author = *in.Author
		changed = true
	}
	if in.Body != nil && *in.Body != current.Body {
		updated.Body = *in.Body
		changed = true
	}
	if in.Subheading != nil && *in.Subheading != current.Subheading {
		updated.Subheading = *in.Subheading
		changed = true
	}
	if in.HeroImage != nil && (current.HeroImage == nil || *in.HeroImage != *current.HeroImage) {
		updated.HeroImage = in.HeroImage
		changed = true
	}
	if in.Status != nil && Status(*in.Status) != current.Status {
		status := Status(*in.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("unknown status %q: %w", *in.Status, httpx.ErrValidation)
		}
		// Transitions are deliberately unrestricted: any status may move
		// to any other via patch.
		updated.Status = status
		changed = true
	}

	tagsChanged := in.Tags != nil && !sameTagNames(current.Tags, *in.Tags)
	if !changed && !tagsChanged {
		return current, ErrNoChange
	}

	now := s.now().UTC()
	updated.LastEdit = &now

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if tagsChanged {
			resolved, err := s.resolveTags(tx, *in.Tags)
			if err != nil {
				return err
			}
			if err := s.repo.ReplaceTags(tx, &updated, resolved); err != nil {
				return err
			}
			updated.Tags = resolved
		}
		return s.repo.Update(tx, &updated)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "post.updated", &updated)
	return &updated, nil
}

func (s *service) Delete(ctx context.Context, actor *auth.Claims, slug string) error {
	if !actor.HasPermission(auth.DeletePost) {
		return httpx.ErrForbidden
	}
	current, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.Delete(tx, current)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, "post.deleted", current)
	return nil
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*Post, error) {
	return s.repo.GetBySlug(ctx, slug)
}

func (s *service) BulkGetBySlugs(ctx context.Context, slugs []string) ([]Post, error) {
	if len(slugs) == 0 {
		return []Post{}, nil
	}
	return s.repo.BulkGetBySlugs(ctx, slugs)
}

func (s *service) List(ctx context.Context, f Filter) ([]Post, *int64, error) {
	return s.repo.List(ctx, f)
}

// resolveTags resolves each name through the registrar on the given
// transaction, skipping empties and duplicates. A failure partway leaves the
// transaction to roll back whatever was created before it.
func (s *service) resolveTags(tx *gorm.DB, names []string) ([]tag.Tag, error) {
	out := make([]tag.Tag, 0, len(names))
	seen := map[string]struct{}{}
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		t, err := s.tags.FindOrCreate(tx, n)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, nil
}

func (s *service) publish(ctx context.Context, event string, p *Post) {
	if s.events == nil {
		return
	}
	payload := map[string]any{
		"event": event,
		"id":    p.ID,
		"slug":  p.Slug,
		"at":    s.now().UTC(),
	}
	if err := s.events.WriteJSON(ctx, payload); err != nil {
		slog.Warn("publish post event", "event", event, "slug", p.Slug, "error", err)
	}
}

func sameTagNames(current []tag.Tag, names []string) bool {
	have := make([]string, 0, len(current))
	for _, t := range current {
		have = append(have, t.Name)
	}
	want := make([]string, 0, len(names))
	seen := map[string]struct{}{}
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		want = append(want, n)
	}
	if len(have) != len(want) {
		return false
	}
	sort.Strings(have)
	sort.Strings(want)
	for i := range have {
		if have[i] != want[i] {
			return false
		}
	}
	return true
}
