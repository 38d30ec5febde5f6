package store

import (
	"context"
	"regexp"

	"github.com/bookmapper/backend/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	bboxLimit   = 300
	searchLimit = 150
)

// searchFields are matched independently by the same substring, OR-ed together.
var searchFields = []string{"title", "author", "tags", "category", "description"}

// InsertBook persists the document as-is. Extra caller-supplied fields are
// kept; nothing beyond the handler's required-field check is enforced here.
func (db *DB) InsertBook(ctx context.Context, doc bson.M) (primitive.ObjectID, error) {
	res, err := db.Books().InsertOne(ctx, doc, options.InsertOne())
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	var book models.Book
	err := db.Books().FindOne(ctx, bson.M{"_id": id}).Decode(&book)
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// BBox is an axis-aligned lng/lat rectangle, corners inclusive.
type BBox struct {
	MinLng, MinLat float64
	MaxLng, MaxLat float64
}

// BooksInBBox returns books with at least one location inside the box.
// Sorted by _id so results are stable; capped at 300.
func (db *DB) BooksInBBox(ctx context.Context, box BBox) ([]models.Book, error) {
	filter := bson.M{
		"locations.geo": bson.M{
			"$geoWithin": bson.M{
				"$box": bson.A{
					bson.A{box.MinLng, box.MinLat},
					bson.A{box.MaxLng, box.MaxLat},
				},
			},
		},
	}
	cur, err := db.Books().Find(ctx, filter,
		options.Find().SetSort(bson.M{"_id": 1}).SetLimit(bboxLimit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var books []models.Book
	if err := cur.All(ctx, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// SearchBooks performs a case-insensitive substring match of q against
// title, author, tags, category and description. The query text is quoted,
// so regex metacharacters in q match literally. Capped at 150.
func (db *DB) SearchBooks(ctx context.Context, q string) ([]models.Book, error) {
	rx := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
	or := make(bson.A, 0, len(searchFields))
	for _, f := range searchFields {
		or = append(or, bson.M{f: bson.M{"$regex": rx}})
	}
	cur, err := db.Books().Find(ctx, bson.M{"$or": or},
		options.Find().SetSort(bson.M{"_id": 1}).SetLimit(searchLimit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var books []models.Book
	if err := cur.All(ctx, &books); err != nil {
		return nil, err
	}
	return books, nil
}
