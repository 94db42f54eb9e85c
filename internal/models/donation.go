package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DonationStatus represents the payment state of a donation.
type DonationStatus string

const (
	DonationCompleted DonationStatus = "completed"
	DonationPending   DonationStatus = "pending"
	DonationFailed    DonationStatus = "failed"
)

// Donation is a single monetary contribution linked to a program and a donor.
// DonorAvatar is denormalized from the donor's user document at write time.
type Donation struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProgramID     primitive.ObjectID `bson:"program_id" json:"program_id"`
	DonorID       primitive.ObjectID `bson:"donor_id,omitempty" json:"donor_id,omitempty"`
	DonorName     string             `bson:"donor_name" json:"donor_name"`
	DonorAvatar   string             `bson:"donor_avatar,omitempty" json:"donor_avatar,omitempty"`
	Amount        float64            `bson:"amount" json:"amount"`
	Date          time.Time          `bson:"date" json:"date"`
	Status        DonationStatus     `bson:"status" json:"status"`
	PaymentMethod string             `bson:"payment_method" json:"payment_method"`
	IsAnonymous   bool               `bson:"is_anonymous" json:"is_anonymous"`
	Note          string             `bson:"note,omitempty" json:"note,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
}

// DisplayName returns the donor name, masked for anonymous donations.
func (d *Donation) DisplayName() string {
	if d.IsAnonymous {
		return "Anonymous"
	}
	return d.DonorName
}
