package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message 两个用户之间的一条聊天消息，收发方为外部认证 id
type Message struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	SenderID   string             `bson:"senderId" json:"senderId"`
	ReceiverID string             `bson:"receiverId" json:"receiverId"`
	Content    string             `bson:"content" json:"content"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}
