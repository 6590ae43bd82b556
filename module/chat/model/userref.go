package model

import (
	"encoding/json"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// UserRef is a user reference that may be stored as a plain id or as a
// populated user snapshot. Every identity comparison in the gateway goes
// through UserRef.ID so call sites never unwrap the two shapes themselves.
type UserRef struct {
	ID     string `bson:"_id" json:"_id"`
	Name   string `bson:"name,omitempty" json:"name,omitempty"`
	Email  string `bson:"email,omitempty" json:"email,omitempty"`
	Avatar string `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Role   string `bson:"role,omitempty" json:"role,omitempty"`
}

// PlainUser builds an unpopulated reference.
func PlainUser(id string) UserRef { return UserRef{ID: id} }

type userRefDoc struct {
	ID     string `bson:"_id"`
	Name   string `bson:"name,omitempty"`
	Email  string `bson:"email,omitempty"`
	Avatar string `bson:"avatar,omitempty"`
	Role   string `bson:"role,omitempty"`
}

// UnmarshalBSONValue accepts either a bare id (string or ObjectId) or an
// embedded populated document.
func (u *UserRef) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	switch t {
	case bson.TypeString:
		s, _, ok := bsoncore.ReadString(data)
		if !ok {
			return errors.New("userref: malformed string value")
		}
		*u = UserRef{ID: s}
		return nil
	case bson.TypeObjectID:
		oid, _, ok := bsoncore.ReadObjectID(data)
		if !ok {
			return errors.New("userref: malformed objectid value")
		}
		*u = UserRef{ID: primitive.ObjectID(oid).Hex()}
		return nil
	case bson.TypeEmbeddedDocument:
		var doc userRefDoc
		if err := bson.Unmarshal(data, &doc); err != nil {
			return errors.Wrap(err, "userref: decode populated document")
		}
		*u = UserRef(doc)
		return nil
	case bson.TypeNull:
		*u = UserRef{}
		return nil
	default:
		return errors.Errorf("userref: unsupported bson type %v", t)
	}
}

// MarshalBSONValue writes the plain id unless the snapshot is populated.
func (u UserRef) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if u.Name == "" && u.Email == "" && u.Avatar == "" && u.Role == "" {
		return bson.MarshalValue(u.ID)
	}
	return bson.MarshalValue(userRefDoc(u))
}

// UnmarshalJSON mirrors the BSON behavior for wire payloads.
func (u *UserRef) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*u = UserRef{ID: s}
		return nil
	}
	type alias UserRef
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*u = UserRef(a)
	return nil
}
