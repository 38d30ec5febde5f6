package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/bookmapper/backend/models"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newPagesRouter(t *testing.T, fs *fakeStore, uploadDir string) chi.Router {
	t.Helper()
	tmpl, err := ParseTemplates()
	require.NoError(t, err)
	h := &PagesHandler{Store: fs, Templates: tmpl, UploadDir: uploadDir, Log: zerolog.Nop()}
	r := chi.NewRouter()
	r.Get("/", h.Home)
	r.Get("/book/{id}", h.Reader)
	r.Get("/pdf/{filename}", h.ServePDF)
	return r
}

func TestReader(t *testing.T) {
	id := primitive.NewObjectID()
	book := storedBook(id)
	book.PDFFile = &models.PDFRef{Kind: models.PDFLocal, Value: "1700000000_atlas.pdf"}

	fs := &fakeStore{byID: map[primitive.ObjectID]*models.Book{id: &book}}
	r := newPagesRouter(t, fs, t.TempDir())

	t.Run("malformed id 404s without querying the store", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/book/not-an-objectid", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Zero(t, fs.byIDCalls)
	})

	t.Run("unknown id 404s", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/book/"+primitive.NewObjectID().Hex(), nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("local pdf resolves through the pdf route", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/book/"+id.Hex(), nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Atlas of Dreams")
		assert.Contains(t, rec.Body.String(), "/pdf/1700000000_atlas.pdf")
	})

	t.Run("remote pdf resolves to its url", func(t *testing.T) {
		remoteID := primitive.NewObjectID()
		remoteBook := storedBook(remoteID)
		remoteBook.PDFFile = &models.PDFRef{Kind: models.PDFRemote, Value: "https://cdn.example.com/a.pdf"}
		fs.byID[remoteID] = &remoteBook

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/book/"+remoteID.Hex(), nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "https://cdn.example.com/a.pdf")
	})
}

func TestServePDF(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1700000000_atlas.pdf"), []byte("%PDF-1.4 test"), 0o644))
	r := newPagesRouter(t, &fakeStore{}, dir)

	t.Run("serves stored bytes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pdf/1700000000_atlas.pdf", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "%PDF-1.4 test", rec.Body.String())
	})

	t.Run("missing file 404s", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pdf/nope.pdf", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("path traversal 404s", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/pdf/name", nil)
		// Force a traversal value past the router.
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("filename", "../secret.pdf")
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
		h := &PagesHandler{UploadDir: dir, Log: zerolog.Nop()}
		h.ServePDF(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
