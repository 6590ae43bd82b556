package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"TChat/module/chat/model"
)

type MongoMessageStore struct {
	coll *mongo.Collection
}

func NewMongoMessageStore(db *mongo.Database) *MongoMessageStore {
	return &MongoMessageStore{coll: db.Collection(model.MsgTableName)}
}

func (s *MongoMessageStore) Create(ctx context.Context, m *model.Message) error {
	_, err := s.coll.InsertOne(ctx, m)
	return errors.Wrapf(err, "insert message %s", m.ID)
}

func (s *MongoMessageStore) FindByID(ctx context.Context, id string) (*model.Message, error) {
	var m model.Message
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find message %s", id)
	}
	return &m, nil
}

// UpdateContent matches only non-deleted messages; soft delete is terminal.
func (s *MongoMessageStore) UpdateContent(ctx context.Context, id, content string, editedAt time.Time) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "isDeleted": false},
		bson.M{"$set": bson.M{
			"content":   content,
			"isEdited":  true,
			"editedAt":  editedAt,
			"updatedAt": editedAt,
		}},
	)
	if err != nil {
		return false, errors.Wrapf(err, "edit message %s", id)
	}
	return res.ModifiedCount > 0, nil
}

func (s *MongoMessageStore) SoftDelete(ctx context.Context, id, byUserID string, at time.Time) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "isDeleted": false},
		bson.M{"$set": bson.M{
			"isDeleted": true,
			"deletedAt": at,
			"deletedBy": byUserID,
			"updatedAt": at,
		}},
	)
	if err != nil {
		return false, errors.Wrapf(err, "soft delete message %s", id)
	}
	return res.ModifiedCount > 0, nil
}

// AddReaction is a conditional push: the filter excludes documents that
// already hold the (emoji, user) pair, so the pair is stored at most once
// no matter how many connections race the call.
func (s *MongoMessageStore) AddReaction(ctx context.Context, id string, r model.Reaction) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{
			"_id": id,
			"reactions": bson.M{"$not": bson.M{
				"$elemMatch": bson.M{"emoji": r.Emoji, "userId": r.UserID},
			}},
		},
		bson.M{"$push": bson.M{"reactions": r}},
	)
	if err != nil {
		return false, errors.Wrapf(err, "add reaction to message %s", id)
	}
	return res.ModifiedCount > 0, nil
}

func (s *MongoMessageStore) RemoveReaction(ctx context.Context, id string, r model.Reaction) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$pull": bson.M{"reactions": bson.M{"emoji": r.Emoji, "userId": r.UserID}}},
	)
	if err != nil {
		return false, errors.Wrapf(err, "remove reaction from message %s", id)
	}
	return res.ModifiedCount > 0, nil
}

// AppendReadReceipts relies on the filter's readBy.userId guard for
// per-user idempotency; status moves straight to read because join/read
// conflate delivery and first read.
func (s *MongoMessageStore) AppendReadReceipts(ctx context.Context, ids []string, readerID string, at time.Time) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	filter := bson.M{
		"_id":           bson.M{"$in": ids},
		"senderId":      bson.M{"$ne": readerID},
		"readBy.userId": bson.M{"$ne": readerID},
		"isDeleted":     false,
	}

	// Snapshot which ids will match so callers can group events per sender.
	matched, err := s.idsMatching(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(matched) == 0 {
		return nil, nil
	}

	_, err = s.coll.UpdateMany(ctx, filter, bson.M{
		"$push": bson.M{"readBy": model.ReadReceipt{UserID: readerID, ReadAt: at}},
		"$set":  bson.M{"status": model.StatusRead, "updatedAt": at},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "append read receipts for %s", readerID)
	}
	return matched, nil
}

func (s *MongoMessageStore) FindUnreadInRoom(ctx context.Context, roomID, userID string) ([]*model.Message, error) {
	cur, err := s.coll.Find(ctx, bson.M{
		"roomId":        roomID,
		"senderId":      bson.M{"$ne": userID},
		"readBy.userId": bson.M{"$ne": userID},
		"isDeleted":     false,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "find unread in room %s", roomID)
	}
	defer func() { _ = cur.Close(ctx) }()

	var out []*model.Message
	for cur.Next(ctx) {
		var m model.Message
		if err := cur.Decode(&m); err != nil {
			return nil, errors.Wrap(err, "decode message")
		}
		out = append(out, &m)
	}
	return out, errors.Wrap(cur.Err(), "cursor")
}

func (s *MongoMessageStore) SenderOf(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.coll.Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"senderId": 1}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "find senders")
	}
	defer func() { _ = cur.Close(ctx) }()

	out := make(map[string]string, len(ids))
	for cur.Next(ctx) {
		var m model.Message
		if err := cur.Decode(&m); err != nil {
			return nil, errors.Wrap(err, "decode sender")
		}
		out[m.ID] = m.SenderID.ID
	}
	return out, errors.Wrap(cur.Err(), "cursor")
}

func (s *MongoMessageStore) idsMatching(ctx context.Context, filter bson.M) ([]string, error) {
	cur, err := s.coll.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, errors.Wrap(err, "match ids")
	}
	defer func() { _ = cur.Close(ctx) }()

	var out []string
	for cur.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decode id")
		}
		out = append(out, doc.ID)
	}
	return out, errors.Wrap(cur.Err(), "cursor")
}
