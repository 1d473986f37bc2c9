package post

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techtonic-plates-blog/posts-service/internal/auth"
	"github.com/techtonic-plates-blog/posts-service/internal/shared/httpx"
)

type fakeObjectStore struct {
	objects map[string][]byte
	puts    []string
	removes []string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}}
}

func (f *fakeObjectStore) Put(ctx context.Context, key string, contentType string, data []byte) error {
	f.puts = append(f.puts, key)
	f.objects[key] = data
	return nil
}

func (f *fakeObjectStore) Remove(ctx context.Context, key string) error {
	f.removes = append(f.removes, key)
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (*url.URL, error) {
	return url.Parse("https://objects.test/" + key)
}

func authed(t *testing.T, parser *auth.TokenParser, perms []auth.Permission, method, target, body string) *http.Request {
	t.Helper()
	tok, err := parser.Make(ownerID.String(), perms, time.Hour)
	require.NoError(t, err)
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.Header.Set("Authorization", "Bearer "+tok)
	return r
}

func TestHandlerCreate(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc, nil)
	parser := auth.NewTokenParser("test-secret")
	endpoint := httpx.AuthMiddleware(parser, httpx.Wrap(h.Create))

	r := authed(t, parser, []auth.Permission{auth.CreatePost}, http.MethodPost, "/posts",
		`{"title":"Hello World","author":"Jane","body":"...","subheading":"sub"}`)
	rec := httptest.NewRecorder()
	endpoint.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"path":"/posts/hello_world"`)
	assert.Contains(t, rec.Body.String(), `"outcome":"created"`)

	// Same title again: conflict.
	r = authed(t, parser, []auth.Permission{auth.CreatePost}, http.MethodPost, "/posts",
		`{"title":"Hello World","author":"Jane","body":"..."}`)
	rec = httptest.NewRecorder()
	endpoint.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerCreateRejectsMissingFields(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc, nil)
	parser := auth.NewTokenParser("test-secret")
	endpoint := httpx.AuthMiddleware(parser, httpx.Wrap(h.Create))

	r := authed(t, parser, []auth.Permission{auth.CreatePost}, http.MethodPost, "/posts",
		`{"author":"Jane"}`)
	rec := httptest.NewRecorder()
	endpoint.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, f.repo.inserts)
}

func uploadReq(t *testing.T, parser *auth.TokenParser, title string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", title))
	require.NoError(t, mw.WriteField("author", "Jane"))
	require.NoError(t, mw.WriteField("body", "..."))
	fw, err := mw.CreateFormFile("hero", "hero.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	tok, err := parser.Make(ownerID.String(), []auth.Permission{auth.CreatePost}, time.Hour)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodPost, "/posts/upload", &buf)
	r.Header.Set("Authorization", "Bearer "+tok)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestHandlerUploadAndCreate(t *testing.T) {
	f := newFixture()
	store := newFakeObjectStore()
	h := NewHandler(f.svc, store)
	parser := auth.NewTokenParser("test-secret")
	endpoint := httpx.AuthMiddleware(parser, httpx.Wrap(h.UploadAndCreate))

	rec := httptest.NewRecorder()
	endpoint.ServeHTTP(rec, uploadReq(t, parser, "Hello World"))
	assert.Equal(t, http.StatusCreated, rec.Code)

	require.Len(t, store.puts, 1)
	assert.Empty(t, store.removes)
	p := f.repo.posts["hello_world"]
	require.NotNil(t, p)
	require.NotNil(t, p.HeroImage)
	assert.Equal(t, store.puts[0], *p.HeroImage)
	assert.True(t, strings.HasPrefix(*p.HeroImage, "hello_world-"))
	assert.True(t, strings.HasSuffix(*p.HeroImage, ".png"))
}

func TestHandlerUploadConflictKeepsExistingHero(t *testing.T) {
	f := newFixture()
	store := newFakeObjectStore()
	h := NewHandler(f.svc, store)
	parser := auth.NewTokenParser("test-secret")
	endpoint := httpx.AuthMiddleware(parser, httpx.Wrap(h.UploadAndCreate))

	rec := httptest.NewRecorder()
	endpoint.ServeHTTP(rec, uploadReq(t, parser, "Hello World"))
	require.Equal(t, http.StatusCreated, rec.Code)
	existingKey := *f.repo.posts["hello_world"].HeroImage

	// Same title again: the create conflicts and the handler cleans up its
	// own upload, never the object the first post references.
	rec = httptest.NewRecorder()
	endpoint.ServeHTTP(rec, uploadReq(t, parser, "Hello World"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.Len(t, store.puts, 2)
	assert.NotEqual(t, existingKey, store.puts[1])
	assert.Equal(t, []string{store.puts[1]}, store.removes)
	assert.Contains(t, store.objects, existingKey)
}

func TestHandlerPatchNoChangeOutcome(t *testing.T) {
	f := newFixture()
	f.seed(t, "Hello World")
	h := NewHandler(f.svc, nil)
	parser := auth.NewTokenParser("test-secret")
	endpoint := httpx.AuthMiddleware(parser, httpx.Wrap(h.Patch))

	r := authed(t, parser, []auth.Permission{auth.UpdatePost}, http.MethodPatch, "/posts/hello_world",
		`{"title":"Hello World"}`)
	r.SetPathValue("slug", "hello_world")
	rec := httptest.NewRecorder()
	endpoint.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"outcome":"no_change"`)
}

func TestHandlerDeleteForbidden(t *testing.T) {
	f := newFixture()
	f.seed(t, "Hello World")
	h := NewHandler(f.svc, nil)
	parser := auth.NewTokenParser("test-secret")
	endpoint := httpx.AuthMiddleware(parser, httpx.Wrap(h.Delete))

	r := authed(t, parser, []auth.Permission{auth.CreatePost}, http.MethodDelete, "/posts/hello_world", "")
	r.SetPathValue("slug", "hello_world")
	rec := httptest.NewRecorder()
	endpoint.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NotNil(t, f.repo.posts["hello_world"])
}

func TestHandlerGetMissingIs404(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc, nil)

	r := httptest.NewRequest(http.MethodGet, "/posts/missing", nil)
	r.SetPathValue("slug", "missing")
	rec := httptest.NewRecorder()
	httpx.Wrap(h.GetBySlug).ServeHTTP(rec, r)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerListRejectsBadParams(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc, nil)

	r := httptest.NewRequest(http.MethodGet, "/posts?status=Sideways", nil)
	rec := httptest.NewRecorder()
	httpx.Wrap(h.List).ServeHTTP(rec, r)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	r = httptest.NewRequest(http.MethodGet, "/posts?created_after=yesterday", nil)
	rec = httptest.NewRecorder()
	httpx.Wrap(h.List).ServeHTTP(rec, r)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
