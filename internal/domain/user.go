package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between user roles
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is the subset of the account record the recommender reads.
// Account creation and login live outside this service.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Role      Role               `bson:"role" json:"role"`
	Profile   UserProfile        `bson:"profile" json:"profile"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// UserProfile carries the training context used to build recommendation text.
type UserProfile struct {
	Goals           []string `bson:"goals,omitempty" json:"goals,omitempty"`                     // e.g. "근력 향상", "체중 감량"
	ExperienceLevel string   `bson:"experienceLevel,omitempty" json:"experienceLevel,omitempty"` // e.g. "BEGINNER"
}
