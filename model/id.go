package model

import "go.mongodb.org/mongo-driver/bson/primitive"

// ParseID 解析 24 位十六进制 id
func ParseID(s string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}
