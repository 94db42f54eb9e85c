package programs

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/givehub/backend/internal/models"
)

// ErrNotFound is returned when no program matches the query.
var ErrNotFound = errors.New("program not found")

// Filter narrows List results. Zero values mean "no filter".
type Filter struct {
	Status       models.ProgramStatus
	Category     string
	FeaturedOnly bool
}

// Repository handles program persistence in the programs collection.
type Repository struct {
	programs *mongo.Collection
}

// NewRepository creates a program repository.
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{programs: db.Collection("programs")}
}

// EnsureIndexes creates query indexes for list filters.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.programs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
	})
	return err
}

// Create inserts a new program and assigns its ID and timestamps.
func (r *Repository) Create(ctx context.Context, p *models.Program) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	res, err := r.programs.InsertOne(ctx, p)
	if err != nil {
		return err
	}
	p.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// GetByID returns a program by ID.
func (r *Repository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Program, error) {
	var p models.Program
	err := r.programs.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns programs matching the filter, newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]models.Program, error) {
	query := bson.M{}
	if f.Status != "" {
		query["status"] = f.Status
	}
	if f.Category != "" {
		query["category"] = f.Category
	}
	if f.FeaturedOnly {
		query["is_featured"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.programs.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var list []models.Program
	for cur.Next(ctx) {
		var p models.Program
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, cur.Err()
}

// ListAll returns every program (report generation).
func (r *Repository) ListAll(ctx context.Context) ([]models.Program, error) {
	return r.List(ctx, Filter{})
}

// UpdateFields applies a partial update and bumps updated_at.
func (r *Repository) UpdateFields(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	set["updated_at"] = time.Now()
	res, err := r.programs.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a program by ID.
func (r *Repository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.programs.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRaised overwrites the derived raised total.
func (r *Repository) SetRaised(ctx context.Context, id primitive.ObjectID, raised float64) error {
	return r.UpdateFields(ctx, id, bson.M{"raised": raised})
}

// SetVolunteers overwrites the derived active-volunteer count.
func (r *Repository) SetVolunteers(ctx context.Context, id primitive.ObjectID, count int64) error {
	return r.UpdateFields(ctx, id, bson.M{"volunteers": count})
}

// SetImageURL stores the uploaded cover image URL.
func (r *Repository) SetImageURL(ctx context.Context, id primitive.ObjectID, url string) error {
	return r.UpdateFields(ctx, id, bson.M{"image_url": url})
}
