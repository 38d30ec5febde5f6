package models

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PDFKind tags where a book's PDF lives: remote object storage or the
// local upload directory.
type PDFKind string

const (
	PDFRemote PDFKind = "remote"
	PDFLocal  PDFKind = "local"
)

// PDFRef is a tagged reference to a book's PDF. Remote refs hold the full
// secure URL; local refs hold a bare filename under the upload directory.
type PDFRef struct {
	Kind  PDFKind `bson:"kind" json:"kind"`
	Value string  `bson:"value" json:"value"`
}

// URL returns the address a browser can load the PDF from.
func (p PDFRef) URL() string {
	if p.Kind == PDFLocal {
		return "/pdf/" + p.Value
	}
	return p.Value
}

// UnmarshalBSONValue accepts both the tagged subdocument and the legacy
// plain-string form (absolute URL vs bare filename, told apart by prefix).
func (p *PDFRef) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	switch t {
	case bsontype.String:
		var s string
		if err := bson.UnmarshalValue(t, data, &s); err != nil {
			return err
		}
		if strings.HasPrefix(s, "http") {
			*p = PDFRef{Kind: PDFRemote, Value: s}
		} else {
			*p = PDFRef{Kind: PDFLocal, Value: s}
		}
		return nil
	case bsontype.EmbeddedDocument:
		var doc struct {
			Kind  PDFKind `bson:"kind"`
			Value string  `bson:"value"`
		}
		if err := bson.UnmarshalValue(t, data, &doc); err != nil {
			return err
		}
		*p = PDFRef{Kind: doc.Kind, Value: doc.Value}
		return nil
	case bsontype.Null:
		*p = PDFRef{}
		return nil
	}
	return fmt.Errorf("pdf_file: cannot decode bson type %s", t)
}

// GeoPoint is a GeoJSON point. Coordinates are [lng, lat] so the 2dsphere
// index can use them directly.
type GeoPoint struct {
	Type        string        `bson:"type,omitempty" json:"type,omitempty"`
	Coordinates []interface{} `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
}

// UnmarshalBSONValue tolerates malformed stored geo values. Anything that is
// not a well-shaped point decodes to the zero GeoPoint; the normalizer hides
// it from output instead of the read failing.
func (g *GeoPoint) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t != bsontype.EmbeddedDocument {
		*g = GeoPoint{}
		return nil
	}
	var doc struct {
		Type        string        `bson:"type"`
		Coordinates []interface{} `bson:"coordinates"`
	}
	if err := bson.UnmarshalValue(t, data, &doc); err != nil {
		*g = GeoPoint{}
		return nil
	}
	*g = GeoPoint{Type: doc.Type, Coordinates: doc.Coordinates}
	return nil
}

// Location is one place a book is set in, embedded in the book document.
type Location struct {
	Geo       *GeoPoint `bson:"geo,omitempty" json:"geo,omitempty"`
	PlaceName string    `bson:"place_name,omitempty" json:"place_name,omitempty"`
	Country   string    `bson:"country,omitempty" json:"country,omitempty"`
}

// UnmarshalBSONValue tolerates stored location entries that are not documents
// at all (creation only checks that the array is non-empty). A malformed
// entry decodes to the zero Location, which the normalizer skips and counts;
// the book itself stays readable.
func (l *Location) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t != bsontype.EmbeddedDocument {
		*l = Location{}
		return nil
	}
	var doc struct {
		Geo       *GeoPoint `bson:"geo"`
		PlaceName string    `bson:"place_name"`
		Country   string    `bson:"country"`
	}
	if err := bson.UnmarshalValue(t, data, &doc); err != nil {
		*l = Location{}
		return nil
	}
	*l = Location{Geo: doc.Geo, PlaceName: doc.PlaceName, Country: doc.Country}
	return nil
}

type Book struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Author      string             `bson:"author" json:"author"`
	Year        interface{}        `bson:"year,omitempty" json:"year,omitempty"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Category    string             `bson:"category,omitempty" json:"category,omitempty"`
	Tags        []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	CoverURL    string             `bson:"cover_url,omitempty" json:"cover_url,omitempty"`
	PDFFile     *PDFRef            `bson:"pdf_file,omitempty" json:"pdf_file,omitempty"`
	Locations   []Location         `bson:"locations" json:"locations"`
}

// NormalizedLocation is the flat location shape returned by the API.
type NormalizedLocation struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	PlaceName string  `json:"place_name,omitempty"`
	Country   string  `json:"country,omitempty"`
}

// BookSummary is the projection returned by the query endpoints. Raw stored
// fields not listed here never leave the store.
type BookSummary struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Author      string               `json:"author"`
	Year        interface{}          `json:"year,omitempty"`
	Description string               `json:"description,omitempty"`
	Tags        []string             `json:"tags"`
	Category    string               `json:"category,omitempty"`
	CoverURL    string               `json:"cover_url,omitempty"`
	PDFFile     *PDFRef              `json:"pdf_file,omitempty"`
	Locations   []NormalizedLocation `json:"locations"`
}
