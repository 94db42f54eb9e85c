package donations

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/givehub/backend/internal/models"
)

// Filter narrows List results. Zero values mean "no filter".
type Filter struct {
	ProgramID primitive.ObjectID
	DonorID   primitive.ObjectID
	Status    models.DonationStatus
}

// Repository handles donation persistence in the donations collection.
type Repository struct {
	donations *mongo.Collection
}

// NewRepository creates a donation repository.
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{donations: db.Collection("donations")}
}

// EnsureIndexes creates query indexes for program/donor lookups and the
// recent-donations feed.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.donations.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "program_id", Value: 1}}},
		{Keys: bson.D{{Key: "donor_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	return err
}

// Insert adds a donation and assigns its ID.
func (r *Repository) Insert(ctx context.Context, d *models.Donation) error {
	res, err := r.donations.InsertOne(ctx, d)
	if err != nil {
		return err
	}
	d.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// GetByID returns a donation by ID.
func (r *Repository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Donation, error) {
	var d models.Donation
	err := r.donations.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Update replaces a donation document.
func (r *Repository) Update(ctx context.Context, d *models.Donation) error {
	res, err := r.donations.ReplaceOne(ctx, bson.M{"_id": d.ID}, d)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a donation by ID.
func (r *Repository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.donations.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns donations matching the filter, newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]models.Donation, error) {
	query := bson.M{}
	if !f.ProgramID.IsZero() {
		query["program_id"] = f.ProgramID
	}
	if !f.DonorID.IsZero() {
		query["donor_id"] = f.DonorID
	}
	if f.Status != "" {
		query["status"] = f.Status
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, query, opts)
}

// ListAll returns every donation (report generation).
func (r *Repository) ListAll(ctx context.Context) ([]models.Donation, error) {
	return r.List(ctx, Filter{})
}

// ListCompletedByProgram returns all completed donations for a program
// (raised-total recomputation).
func (r *Repository) ListCompletedByProgram(ctx context.Context, programID primitive.ObjectID) ([]models.Donation, error) {
	query := bson.M{"program_id": programID, "status": models.DonationCompleted}
	return r.find(ctx, query, nil)
}

// ListRecent returns the most recent donations up to limit.
func (r *Repository) ListRecent(ctx context.Context, limit int64) ([]models.Donation, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	return r.find(ctx, bson.M{}, opts)
}

// ListByDonorSince returns a donor's donations created after since, newest
// first. Zero since means all.
func (r *Repository) ListByDonorSince(ctx context.Context, donorID primitive.ObjectID, since time.Time) ([]models.Donation, error) {
	query := bson.M{"donor_id": donorID}
	if !since.IsZero() {
		query["created_at"] = bson.M{"$gte": since}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, query, opts)
}

func (r *Repository) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]models.Donation, error) {
	var cur *mongo.Cursor
	var err error
	if opts != nil {
		cur, err = r.donations.Find(ctx, query, opts)
	} else {
		cur, err = r.donations.Find(ctx, query)
	}
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var list []models.Donation
	for cur.Next(ctx) {
		var d models.Donation
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, cur.Err()
}
