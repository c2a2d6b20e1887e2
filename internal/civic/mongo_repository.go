package civic

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the MongoDB collection complaints live in.
const CollectionName = "civic_reports"

// MongoRepository is a MongoDB implementation of Repository. Documents keep
// the nested location shape so existing collections can be read unchanged.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository creates a repository over db's civic_reports collection.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(CollectionName)}
}

type mongoLocation struct {
	Latitude  float64 `bson:"latitude"`
	Longitude float64 `bson:"longitude"`
	Address   string  `bson:"address,omitempty"`
}

type mongoComplaint struct {
	ID          string        `bson:"id"`
	Location    mongoLocation `bson:"location"`
	ReportType  string        `bson:"report_type"`
	Description string        `bson:"description"`
	Severity    string        `bson:"severity"`
	Status      string        `bson:"status"`
	ReporterID  *string       `bson:"reporter_id,omitempty"`
	Timestamp   time.Time     `bson:"timestamp"`
}

func toMongo(c *Complaint) mongoComplaint {
	return mongoComplaint{
		ID: c.ID,
		Location: mongoLocation{
			Latitude:  c.Location.Latitude,
			Longitude: c.Location.Longitude,
			Address:   c.Location.Address,
		},
		ReportType:  string(c.Category),
		Description: c.Description,
		Severity:    string(c.Severity),
		Status:      string(c.Status),
		ReporterID:  c.ReporterID,
		Timestamp:   c.CreatedAt,
	}
}

func (d mongoComplaint) toComplaint() *Complaint {
	return &Complaint{
		ID: d.ID,
		Location: Location{
			Latitude:  d.Location.Latitude,
			Longitude: d.Location.Longitude,
			Address:   d.Location.Address,
		},
		Category:    Category(d.ReportType),
		Description: d.Description,
		Severity:    Severity(d.Severity),
		Status:      Status(d.Status),
		ReporterID:  d.ReporterID,
		CreatedAt:   d.Timestamp.UTC(),
	}
}

// EnsureIndexes creates the unique id index and the status/location index
// the bounding-box query uses.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "location.latitude", Value: 1},
				{Key: "location.longitude", Value: 1},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: ensure indexes: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Create inserts a new complaint document.
func (r *MongoRepository) Create(ctx context.Context, c *Complaint) error {
	if _, err := r.coll.InsertOne(ctx, toMongo(c)); err != nil {
		return fmt.Errorf("%w: insert complaint: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// FindNearby runs the bounding-box filter on the server.
func (r *MongoRepository) FindNearby(ctx context.Context, q NearbyQuery) ([]*Complaint, error) {
	opts := options.Find().SetLimit(int64(q.limit()))
	if q.NewestFirst {
		opts.SetSort(bson.D{{Key: "timestamp", Value: -1}})
	}

	cursor, err := r.coll.Find(ctx, nearbyFilter(q), opts)
	if err != nil {
		return nil, fmt.Errorf("%w: find complaints: %w", ErrStoreUnavailable, err)
	}
	defer cursor.Close(ctx)

	complaints := make([]*Complaint, 0)
	for cursor.Next(ctx) {
		var doc mongoComplaint
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: decode complaint: %w", ErrStoreUnavailable, err)
		}
		complaints = append(complaints, doc.toComplaint())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate complaints: %w", ErrStoreUnavailable, err)
	}

	return complaints, nil
}

// Ping checks the primary is reachable.
func (r *MongoRepository) Ping(ctx context.Context) error {
	if err := r.coll.Database().Client().Ping(ctx, nil); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

func nearbyFilter(q NearbyQuery) bson.M {
	filter := bson.M{"status": string(StatusActive)}

	if box, ok := q.Box(); ok {
		filter["location.latitude"] = bson.M{"$gte": box.MinLat, "$lte": box.MaxLat}
		filter["location.longitude"] = bson.M{"$gte": box.MinLon, "$lte": box.MaxLon}
	}
	if q.Category != "" {
		filter["report_type"] = string(q.Category)
	}
	return filter
}

// Ensure MongoRepository implements Repository interface.
var _ Repository = (*MongoRepository)(nil)
