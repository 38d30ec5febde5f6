package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func decodeBook(t *testing.T, doc bson.M) Book {
	t.Helper()
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	var book Book
	require.NoError(t, bson.Unmarshal(raw, &book))
	return book
}

func TestPDFRefDecode(t *testing.T) {
	tests := []struct {
		name string
		doc  bson.M
		want *PDFRef
	}{
		{
			name: "tagged subdocument",
			doc:  bson.M{"pdf_file": bson.M{"kind": "remote", "value": "https://cdn.example.com/a.pdf"}},
			want: &PDFRef{Kind: PDFRemote, Value: "https://cdn.example.com/a.pdf"},
		},
		{
			name: "legacy url string",
			doc:  bson.M{"pdf_file": "http://cdn.example.com/a.pdf"},
			want: &PDFRef{Kind: PDFRemote, Value: "http://cdn.example.com/a.pdf"},
		},
		{
			name: "legacy bare filename",
			doc:  bson.M{"pdf_file": "1700000000_atlas.pdf"},
			want: &PDFRef{Kind: PDFLocal, Value: "1700000000_atlas.pdf"},
		},
		{
			name: "absent",
			doc:  bson.M{},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := bson.M{"title": "T", "author": "A"}
			for k, v := range tt.doc {
				doc[k] = v
			}
			book := decodeBook(t, doc)
			assert.Equal(t, tt.want, book.PDFFile)
		})
	}
}

func TestPDFRefURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/a.pdf", PDFRef{Kind: PDFRemote, Value: "https://cdn.example.com/a.pdf"}.URL())
	assert.Equal(t, "/pdf/1700000000_atlas.pdf", PDFRef{Kind: PDFLocal, Value: "1700000000_atlas.pdf"}.URL())
}

func TestLocationDecodeTolerance(t *testing.T) {
	tests := []struct {
		name  string
		entry interface{}
		want  Location
	}{
		{
			name:  "well-formed entry",
			entry: bson.M{"geo": bson.M{"type": "Point", "coordinates": bson.A{2.35, 48.85}}, "place_name": "Paris"},
			want: Location{
				Geo:       &GeoPoint{Type: "Point", Coordinates: []interface{}{2.35, 48.85}},
				PlaceName: "Paris",
			},
		},
		{
			name:  "entry is a bare string",
			entry: "Paris",
			want:  Location{},
		},
		{
			name:  "entry is a number",
			entry: 42,
			want:  Location{},
		},
		{
			name:  "entry has wrong field types",
			entry: bson.M{"place_name": 7, "geo": bson.M{"coordinates": bson.A{1.0, 2.0}}},
			want:  Location{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// A good entry rides along so the malformed one provably does
			// not take the rest of the document down with it.
			good := bson.M{"geo": bson.M{"type": "Point", "coordinates": bson.A{-0.12, 51.5}}, "country": "UK"}
			book := decodeBook(t, bson.M{
				"title":     "T",
				"author":    "A",
				"locations": bson.A{tt.entry, good},
			})
			require.Len(t, book.Locations, 2)
			assert.Equal(t, tt.want, book.Locations[0])
			assert.Equal(t, Location{
				Geo:     &GeoPoint{Type: "Point", Coordinates: []interface{}{-0.12, 51.5}},
				Country: "UK",
			}, book.Locations[1])
		})
	}
}

func TestGeoPointDecodeTolerance(t *testing.T) {
	tests := []struct {
		name string
		geo  interface{}
		want *GeoPoint
	}{
		{
			name: "well-formed point",
			geo:  bson.M{"type": "Point", "coordinates": bson.A{2.35, 48.85}},
			want: &GeoPoint{Type: "Point", Coordinates: []interface{}{2.35, 48.85}},
		},
		{
			name: "geo is a string, not a document",
			geo:  "malformed",
			want: &GeoPoint{},
		},
		{
			name: "coordinates is not an array",
			geo:  bson.M{"type": "Point", "coordinates": "nope"},
			want: &GeoPoint{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book := decodeBook(t, bson.M{
				"title":     "T",
				"author":    "A",
				"locations": bson.A{bson.M{"geo": tt.geo, "place_name": "Somewhere"}},
			})
			require.Len(t, book.Locations, 1)
			assert.Equal(t, tt.want, book.Locations[0].Geo)
			assert.Equal(t, "Somewhere", book.Locations[0].PlaceName)
		})
	}
}
