package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role represents a user's role on the platform.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleDonor     Role = "donor"
	RoleVolunteer Role = "volunteer"
)

// OnboardingSurvey holds the answers collected after first sign-in.
type OnboardingSurvey struct {
	Interests              []string `bson:"interests,omitempty" json:"interests,omitempty"`
	PreferredCommunication string   `bson:"preferred_communication,omitempty" json:"preferred_communication,omitempty"`
	HowHeard               string   `bson:"how_heard,omitempty" json:"how_heard,omitempty"`
	DonationFrequency      string   `bson:"donation_frequency,omitempty" json:"donation_frequency,omitempty"`
}

// User is a platform account. PasswordHash is empty for accounts created via
// federated sign-in.
type User struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name                string             `bson:"name" json:"name"`
	Email               string             `bson:"email" json:"email"`
	PasswordHash        string             `bson:"password_hash,omitempty" json:"-"`
	Role                Role               `bson:"role" json:"role"`
	Avatar              string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	OnboardingCompleted bool               `bson:"onboarding_completed" json:"onboarding_completed"`
	Onboarding          OnboardingSurvey   `bson:"onboarding,omitempty" json:"onboarding,omitempty"`
	CreatedAt           time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt           time.Time          `bson:"updated_at" json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID                  primitive.ObjectID `json:"id"`
	Name                string             `json:"name"`
	Email               string             `json:"email"`
	Role                Role               `json:"role"`
	Avatar              string             `json:"avatar,omitempty"`
	OnboardingCompleted bool               `json:"onboarding_completed"`
	CreatedAt           time.Time          `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:                  u.ID,
		Name:                u.Name,
		Email:               u.Email,
		Role:                u.Role,
		Avatar:              u.Avatar,
		OnboardingCompleted: u.OnboardingCompleted,
		CreatedAt:           u.CreatedAt,
	}
}
