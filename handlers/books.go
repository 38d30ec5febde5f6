package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/bookmapper/backend/internal/metrics"
	"github.com/bookmapper/backend/models"
	"github.com/bookmapper/backend/service"
	"github.com/bookmapper/backend/store"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BookStore is the slice of the store layer the book handlers need. *store.DB
// satisfies it; tests substitute a fake.
type BookStore interface {
	InsertBook(ctx context.Context, doc bson.M) (primitive.ObjectID, error)
	BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
	BooksInBBox(ctx context.Context, box store.BBox) ([]models.Book, error)
	SearchBooks(ctx context.Context, q string) ([]models.Book, error)
}

type BooksHandler struct {
	Store    BookStore
	Resolver *service.UploadResolver
	Metrics  *metrics.Metrics
	Log      zerolog.Logger
	MaxBytes int64
}

// requiredFields are checked in this order; the first missing one is reported.
var requiredFields = []string{"title", "author", "locations"}

// missingBookField returns the first required field that is absent, blank, or
// an empty locations array. Empty string means the document is acceptable.
func missingBookField(doc map[string]interface{}) string {
	for _, f := range requiredFields {
		v, ok := doc[f]
		if !ok || v == nil {
			return f
		}
		switch t := v.(type) {
		case string:
			if strings.TrimSpace(t) == "" {
				return f
			}
		case []interface{}:
			if len(t) == 0 {
				return f
			}
		}
	}
	return ""
}

// Create handles POST /api/book. The body is persisted as-is, extra fields
// included; only the three required fields are checked.
func (h *BooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var doc map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil || doc == nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	h.persist(w, r, doc, "")
}

// CreateWithPDF handles POST /api/book-with-pdf. The book fields arrive as a
// JSON string in the "data" form field; the optional "pdf_file" part goes
// through the upload resolver before the shared validate-and-persist core.
func (h *BooksHandler) CreateWithPDF(w http.ResponseWriter, r *http.Request) {
	if h.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	}
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	raw := r.FormValue("data")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "Missing book data payload")
		return
	}
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil || doc == nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON in data")
		return
	}

	storage := ""
	file, header, err := r.FormFile("pdf_file")
	switch {
	case err == nil && header.Filename != "":
		defer file.Close()
		ref, fellBack, rerr := h.Resolver.Resolve(r.Context(), header.Filename, file)
		if errors.Is(rerr, service.ErrNotPDF) {
			writeError(w, http.StatusBadRequest, "Only PDF allowed")
			return
		}
		if rerr != nil {
			h.Log.Error().Err(rerr).Msg("pdf upload failed")
			writeError(w, http.StatusInternalServerError, "failed to store PDF")
			return
		}
		doc["pdf_file"] = ref
		storage = string(models.PDFRemote)
		if fellBack {
			storage = string(models.PDFLocal)
		}
	case err == nil:
		file.Close()
	case !errors.Is(err, http.ErrMissingFile):
		writeError(w, http.StatusBadRequest, "invalid pdf_file part")
		return
	}

	h.persist(w, r, doc, storage)
}

type createResponse struct {
	Status string `json:"status"`
	// PDFStorage reports which tier took the upload ("remote" or "local"),
	// so callers can observe the fallback without it becoming an error.
	PDFStorage string `json:"pdf_storage,omitempty"`
}

func (h *BooksHandler) persist(w http.ResponseWriter, r *http.Request, doc map[string]interface{}, pdfStorage string) {
	if f := missingBookField(doc); f != "" {
		writeError(w, http.StatusBadRequest, f+" is required")
		return
	}
	if _, err := h.Store.InsertBook(r.Context(), bson.M(doc)); err != nil {
		h.Log.Error().Err(err).Msg("insert book failed")
		writeError(w, http.StatusInternalServerError, "failed to save book")
		return
	}
	h.Metrics.BooksCreatedTotal.Inc()
	writeJSON(w, http.StatusCreated, createResponse{Status: "success", PDFStorage: pdfStorage})
}

type bboxResponse struct {
	Count            int                  `json:"count"`
	Books            []models.BookSummary `json:"books"`
	SkippedLocations int                  `json:"skipped_locations,omitempty"`
}

// BBox handles GET /api/books-in-bbox. All four corner parameters must parse
// as floats; anything else is the flat "Invalid BBOX" validation error.
func (h *BooksHandler) BBox(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var box store.BBox
	var err error
	for _, p := range []struct {
		name string
		dst  *float64
	}{
		{"min_lng", &box.MinLng},
		{"min_lat", &box.MinLat},
		{"max_lng", &box.MaxLng},
		{"max_lat", &box.MaxLat},
	} {
		*p.dst, err = strconv.ParseFloat(q.Get(p.name), 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid BBOX")
			return
		}
	}

	books, err := h.Store.BooksInBBox(r.Context(), box)
	if err != nil {
		h.Log.Error().Err(err).Msg("bbox query failed")
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	h.Metrics.BBoxQueriesTotal.Inc()
	summaries, skipped := h.summarize(books)
	writeJSON(w, http.StatusOK, bboxResponse{
		Count:            len(summaries),
		Books:            summaries,
		SkippedLocations: skipped,
	})
}

type searchResponse struct {
	Books            []models.BookSummary `json:"books"`
	SkippedLocations int                  `json:"skipped_locations,omitempty"`
}

// Search handles GET /api/search. A blank q short-circuits to an empty result
// without touching the store.
func (h *BooksHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusOK, searchResponse{Books: []models.BookSummary{}})
		return
	}
	books, err := h.Store.SearchBooks(r.Context(), q)
	if err != nil {
		h.Log.Error().Err(err).Msg("search failed")
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	h.Metrics.SearchesTotal.Inc()
	summaries, skipped := h.summarize(books)
	writeJSON(w, http.StatusOK, searchResponse{Books: summaries, SkippedLocations: skipped})
}

// summarize projects stored books into the summary shape and reports how many
// malformed location entries were hidden on the way.
func (h *BooksHandler) summarize(books []models.Book) ([]models.BookSummary, int) {
	summaries := make([]models.BookSummary, 0, len(books))
	totalSkipped := 0
	for i := range books {
		b := &books[i]
		locs, skipped := service.NormalizeLocations(b.Locations)
		totalSkipped += skipped
		tags := b.Tags
		if tags == nil {
			tags = []string{}
		}
		summaries = append(summaries, models.BookSummary{
			ID:          b.ID.Hex(),
			Title:       b.Title,
			Author:      b.Author,
			Year:        b.Year,
			Description: b.Description,
			Tags:        tags,
			Category:    b.Category,
			CoverURL:    b.CoverURL,
			PDFFile:     b.PDFFile,
			Locations:   locs,
		})
	}
	if totalSkipped > 0 {
		h.Metrics.LocationsSkippedTotal.Add(float64(totalSkipped))
	}
	return summaries, totalSkipped
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
