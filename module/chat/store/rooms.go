package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"TChat/module/chat/model"
)

type MongoRoomStore struct {
	coll *mongo.Collection
}

func NewMongoRoomStore(db *mongo.Database) *MongoRoomStore {
	return &MongoRoomStore{coll: db.Collection(model.RoomTableName)}
}

func (s *MongoRoomStore) FindByID(ctx context.Context, id string) (*model.Room, error) {
	var room model.Room
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find room %s", id)
	}
	return &room, nil
}

func (s *MongoRoomStore) SetLastMessage(ctx context.Context, roomID, messageID string, at time.Time) error {
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": roomID}, bson.M{
		"$set": bson.M{
			"lastMessage":     messageID,
			"lastMessageTime": at,
			"updatedAt":       at,
		},
	})
	return errors.Wrapf(err, "set last message on room %s", roomID)
}

// IncrementUnread uses one field-level $inc per user so concurrent sends
// from different connections never lose counts.
func (s *MongoRoomStore) IncrementUnread(ctx context.Context, roomID string, userIDs []string, delta int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	inc := bson.M{}
	for _, uid := range userIDs {
		inc["unreadCount."+uid] = delta
	}
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": roomID}, bson.M{"$inc": inc})
	return errors.Wrapf(err, "increment unread on room %s", roomID)
}

// ClearUnread removes the counter entry rather than zeroing it; absence
// means "caught up".
func (s *MongoRoomStore) ClearUnread(ctx context.Context, roomID, userID string) error {
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": roomID}, bson.M{
		"$unset": bson.M{"unreadCount." + userID: ""},
	})
	return errors.Wrapf(err, "clear unread on room %s for %s", roomID, userID)
}
