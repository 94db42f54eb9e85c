package volunteers

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/givehub/backend/internal/models"
)

// ErrNotFound is returned when no volunteer matches the query.
var ErrNotFound = errors.New("volunteer not found")

// Filter narrows List results. Zero values mean "no filter".
type Filter struct {
	ProgramID primitive.ObjectID
	Status    models.VolunteerStatus
}

// Repository handles volunteer persistence in the volunteers collection.
type Repository struct {
	volunteers *mongo.Collection
}

// NewRepository creates a volunteer repository.
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{volunteers: db.Collection("volunteers")}
}

// EnsureIndexes creates the program/status index used by count queries.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.volunteers.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "program_id", Value: 1}, {Key: "status", Value: 1}}},
	})
	return err
}

// Insert adds a volunteer and assigns its ID.
func (r *Repository) Insert(ctx context.Context, v *models.Volunteer) error {
	res, err := r.volunteers.InsertOne(ctx, v)
	if err != nil {
		return err
	}
	v.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// GetByID returns a volunteer by ID.
func (r *Repository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Volunteer, error) {
	var v models.Volunteer
	err := r.volunteers.FindOne(ctx, bson.M{"_id": id}).Decode(&v)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Update replaces a volunteer document.
func (r *Repository) Update(ctx context.Context, v *models.Volunteer) error {
	res, err := r.volunteers.ReplaceOne(ctx, bson.M{"_id": v.ID}, v)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a volunteer by ID.
func (r *Repository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.volunteers.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns volunteers matching the filter, newest joiners first.
func (r *Repository) List(ctx context.Context, f Filter) ([]models.Volunteer, error) {
	query := bson.M{}
	if !f.ProgramID.IsZero() {
		query["program_id"] = f.ProgramID
	}
	if f.Status != "" {
		query["status"] = f.Status
	}
	opts := options.Find().SetSort(bson.D{{Key: "joined_date", Value: -1}})
	cur, err := r.volunteers.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var list []models.Volunteer
	for cur.Next(ctx) {
		var v models.Volunteer
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, cur.Err()
}

// ListAll returns every volunteer (report generation).
func (r *Repository) ListAll(ctx context.Context) ([]models.Volunteer, error) {
	return r.List(ctx, Filter{})
}

// CountActive counts active volunteers assigned to a program.
func (r *Repository) CountActive(ctx context.Context, programID primitive.ObjectID) (int64, error) {
	return r.volunteers.CountDocuments(ctx, bson.M{
		"program_id": programID,
		"status":     models.VolunteerActive,
	})
}
