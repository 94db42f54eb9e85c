package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgramStatus represents the lifecycle state of a program.
type ProgramStatus string

const (
	ProgramActive    ProgramStatus = "active"
	ProgramDraft     ProgramStatus = "draft"
	ProgramCompleted ProgramStatus = "completed"
)

// Program is a fundraising/volunteer campaign with a funding target and
// running totals. Raised and Volunteers are derived fields maintained by the
// donation and volunteer services.
type Program struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Category    string             `bson:"category" json:"category"`
	Location    string             `bson:"location" json:"location"`
	Manager     string             `bson:"manager" json:"manager"`
	StartDate   time.Time          `bson:"start_date" json:"start_date"`
	EndDate     time.Time          `bson:"end_date" json:"end_date"`
	Target      float64            `bson:"target" json:"target"`
	Raised      float64            `bson:"raised" json:"raised"`
	Status      ProgramStatus      `bson:"status" json:"status"`
	Volunteers  int64              `bson:"volunteers" json:"volunteers"`
	IsFeatured  bool               `bson:"is_featured" json:"is_featured"`
	ImageURL    string             `bson:"image_url,omitempty" json:"image_url,omitempty"`
	Tags        []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// Progress returns the percentage of the funding target reached, capped at 100.
func (p *Program) Progress() float64 {
	if p.Target <= 0 {
		return 0
	}
	pct := p.Raised / p.Target * 100
	if pct > 100 {
		return 100
	}
	return pct
}
