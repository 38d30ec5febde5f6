package handlers

import (
	"html/template"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/bookmapper/backend/middleware"
	"github.com/bookmapper/backend/models"
	"github.com/bookmapper/backend/web"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ParseTemplates loads the embedded page templates.
func ParseTemplates() (*template.Template, error) {
	return template.ParseFS(web.Templates, "templates/*.html")
}

type PagesHandler struct {
	Store     BookStore
	Templates *template.Template
	UploadDir string
	Log       zerolog.Logger
}

type homeData struct {
	UserEmail string
}

func (h *PagesHandler) Home(w http.ResponseWriter, r *http.Request) {
	email, _ := middleware.EmailFromContext(r.Context())
	h.render(w, "index.html", homeData{UserEmail: email})
}

type readerData struct {
	Book   *models.Book
	PDFURL string
}

// Reader handles GET /book/{id}. A malformed id 404s before the store is
// ever queried.
func (h *PagesHandler) Reader(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	book, err := h.Store.BookByID(r.Context(), id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	pdfURL := ""
	if book.PDFFile != nil {
		pdfURL = book.PDFFile.URL()
	}
	h.render(w, "reader.html", readerData{Book: book, PDFURL: pdfURL})
}

// ServePDF handles GET /pdf/{filename}, streaming a locally stored upload.
func (h *PagesHandler) ServePDF(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	// Upload filenames are flat; anything path-like is not ours.
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(h.UploadDir, name))
}

func (h *PagesHandler) render(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.Templates.ExecuteTemplate(w, name, data); err != nil {
		h.Log.Error().Err(err).Str("template", name).Msg("render failed")
	}
}
