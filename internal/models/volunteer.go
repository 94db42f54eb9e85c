package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VolunteerStatus represents whether a volunteer is currently active.
type VolunteerStatus string

const (
	VolunteerActive   VolunteerStatus = "active"
	VolunteerInactive VolunteerStatus = "inactive"
)

// Volunteer is a person record linked to a program.
type Volunteer struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProgramID  primitive.ObjectID `bson:"program_id" json:"program_id"`
	Name       string             `bson:"name" json:"name"`
	Email      string             `bson:"email" json:"email"`
	Phone      string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Role       string             `bson:"role,omitempty" json:"role,omitempty"`
	JoinedDate time.Time          `bson:"joined_date" json:"joined_date"`
	Status     VolunteerStatus    `bson:"status" json:"status"`
}
