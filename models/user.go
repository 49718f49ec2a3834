package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const RoleAdmin = "admin"

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Role      string             `bson:"role" json:"role"` // admin, client
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// IsAdmin checks the admin capability against the users collection instead
// of a fixed in-code list, so role changes take effect without a deploy.
func IsAdmin(ctx context.Context, users *mongo.Collection, userID primitive.ObjectID) bool {
	var u User
	if err := users.FindOne(ctx, bson.M{"_id": userID}).Decode(&u); err != nil {
		return false
	}
	return u.Role == RoleAdmin
}
