package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PushSubscription is a browser push endpoint that wants new-post notifications.
type PushSubscription struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Endpoint  string             `bson:"endpoint" json:"endpoint"`
	P256dh    string             `bson:"p256dh" json:"p256dh"`
	Auth      string             `bson:"auth" json:"auth"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
