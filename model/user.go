package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User 外部认证用户在本地的记录，首次回调时创建
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	ClerkID   string             `bson:"clerkId" json:"clerkId"`
	FullName  string             `bson:"fullName" json:"fullName"`
	ImageURL  string             `bson:"imageUrl" json:"imageUrl"`
	Email     string             `bson:"email,omitempty" json:"email,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
