package post

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/techtonic-plates-blog/posts-service/internal/shared/httpx"
	"github.com/techtonic-plates-blog/posts-service/internal/shared/validate"
)

// ObjectStore is the slice of object storage the handler needs for hero
// images.
type ObjectStore interface {
	Put(ctx context.Context, key string, contentType string, data []byte) error
	Remove(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (*url.URL, error)
}

type Handler struct {
	svc     Service
	storage ObjectStore
}

func NewHandler(svc Service, storage ObjectStore) *Handler {
	return &Handler{svc: svc, storage: storage}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) error {
	claims, err := httpx.ClaimsFromCtx(r)
	if err != nil {
		return err
	}
	in, err := httpx.Decode[CreateReq](r)
	if err != nil {
		return err
	}
	if err := validate.Struct(in); err != nil {
		return err
	}
	p, err := h.svc.Create(r.Context(), claims, in)
	countMutation("create", err)
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, map[string]any{
		"outcome": "created",
		"path":    "/posts/" + p.Slug,
		"post":    p,
	}, http.StatusCreated)
	return nil
}

// UploadAndCreate is the multipart variant: the hero file goes to object
// storage first, then the row is written. The upload must be finished before
// the transaction opens, so a failed create only costs a best-effort object
// removal.
func (h *Handler) UploadAndCreate(w http.ResponseWriter, r *http.Request) error {
	claims, err := httpx.ClaimsFromCtx(r)
	if err != nil {
		return err
	}
	if err := r.ParseMultipartForm(20 << 20); err != nil { // 20MB
		return errors.Join(httpx.ErrValidation, err)
	}

	in := CreateReq{
		Title:      strings.TrimSpace(r.FormValue("title")),
		Author:     strings.TrimSpace(r.FormValue("author")),
		Body:       r.FormValue("body"),
		Subheading: strings.TrimSpace(r.FormValue("subheading")),
		Status:     strings.TrimSpace(r.FormValue("status")),
	}
	if tags := strings.TrimSpace(r.FormValue("tags")); tags != "" {
		for _, t := range strings.Split(tags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				in.Tags = append(in.Tags, t)
			}
		}
	}
	if err := validate.Struct(in); err != nil {
		return err
	}

	file, hdr, err := r.FormFile("hero")
	if err != nil {
		return errors.Join(httpx.ErrValidation, err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	slug := DeriveSlug(in.Title)
	if slug == "" {
		return fmt.Errorf("title %q yields an empty slug: %w", in.Title, httpx.ErrValidation)
	}
	// The key carries a fresh id so removing it after a failed create never
	// touches an object some other post already references.
	key := slug + "-" + uuid.NewString() + path.Ext(hdr.Filename)
	contentType := hdr.Header.Get("Content-Type")
	if err := h.storage.Put(r.Context(), key, contentType, data); err != nil {
		return fmt.Errorf("hero upload: %w", err)
	}
	in.HeroImage = key

	p, err := h.svc.Create(r.Context(), claims, in)
	countMutation("create", err)
	if err != nil {
		_ = h.storage.Remove(r.Context(), key)
		return err
	}
	httpx.WriteJSON(w, map[string]any{
		"outcome": "created",
		"path":    "/posts/" + p.Slug,
		"post":    p,
	}, http.StatusCreated)
	return nil
}

func (h *Handler) GetBySlug(w http.ResponseWriter, r *http.Request) error {
	p, err := h.svc.GetBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, p, http.StatusOK)
	return nil
}

func (h *Handler) BulkGet(w http.ResponseWriter, r *http.Request) error {
	slugs, err := httpx.Decode[[]string](r)
	if err != nil {
		return err
	}
	posts, err := h.svc.BulkGetBySlugs(r.Context(), slugs)
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, posts, http.StatusOK)
	return nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) error {
	f := Filter{
		Title:     r.URL.Query().Get("title"),
		Author:    r.URL.Query().Get("author"),
		Limit:     httpx.QueryInt(r, "limit", DefaultLimit),
		Offset:    httpx.QueryInt(r, "offset", 0),
		WithCount: r.URL.Query().Get("with_count") == "true",
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := Status(s)
		if !status.Valid() {
			return fmt.Errorf("unknown status %q: %w", s, httpx.ErrValidation)
		}
		f.Status = &status
	}
	if s := r.URL.Query().Get("created_after"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("created_after: %s: %w", err, httpx.ErrValidation)
		}
		f.CreatedAfter = &t
	}

	posts, count, err := h.svc.List(r.Context(), f)
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, ListResp{
		Posts:  posts,
		Count:  count,
		Limit:  f.limit(),
		Offset: f.offset(),
	}, http.StatusOK)
	return nil
}

func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) error {
	claims, err := httpx.ClaimsFromCtx(r)
	if err != nil {
		return err
	}
	slug := r.PathValue("slug")
	in, err := httpx.Decode[PatchReq](r)
	if err != nil {
		return err
	}
	p, err := h.svc.Patch(r.Context(), claims, slug, in)
	if errors.Is(err, ErrNoChange) {
		httpx.WriteJSON(w, map[string]any{"outcome": "no_change", "slug": slug}, http.StatusOK)
		return nil
	}
	countMutation("patch", err)
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, map[string]any{
		"outcome": "updated",
		"slug":    p.Slug,
		"post":    p,
	}, http.StatusOK)
	return nil
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) error {
	claims, err := httpx.ClaimsFromCtx(r)
	if err != nil {
		return err
	}
	slug := r.PathValue("slug")
	err = h.svc.Delete(r.Context(), claims, slug)
	countMutation("delete", err)
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, map[string]any{"outcome": "deleted", "slug": slug}, http.StatusOK)
	return nil
}

// HeroImage redirects to a short-lived signed URL for the post's hero file.
func (h *Handler) HeroImage(w http.ResponseWriter, r *http.Request) error {
	p, err := h.svc.GetBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		return err
	}
	if p.HeroImage == nil {
		return fmt.Errorf("post %q has no hero image: %w", p.Slug, httpx.ErrNotFound)
	}
	u, err := h.storage.PresignGet(r.Context(), *p.HeroImage, 15*time.Minute)
	if err != nil {
		return err
	}
	http.Redirect(w, r, u.String(), http.StatusTemporaryRedirect)
	return nil
}
