// Package archive persists final standings to MongoDB when a coordinator
// deletes a session. Live sessions carry no durability guarantee; only the
// outcome of a finished exercise survives the store's TTL.
package archive

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/skyminlab/running-game/internal/model"
	"github.com/skyminlab/running-game/internal/rank"
)

// SessionArchive is the stored record of a finished exercise.
type SessionArchive struct {
	Code       string                          `json:"code" bson:"code"`
	CreatedAt  time.Time                       `json:"createdAt" bson:"createdAt"`
	ArchivedAt time.Time                       `json:"archivedAt" bson:"archivedAt"`
	Students   []model.Participant             `json:"students" bson:"students"`
	Rankings   map[model.GameType][]rank.Entry `json:"rankings" bson:"rankings"`
}

// Archive stores and retrieves finished-session records.
type Archive interface {
	Save(ctx context.Context, rec *SessionArchive) error
	GetByCode(ctx context.Context, code string) (*SessionArchive, error)
}

type mongoArchive struct {
	collection *mongo.Collection
}

// NewMongo creates an archive backed by the given database.
func NewMongo(db *mongo.Database) Archive {
	return &mongoArchive{
		collection: db.Collection("session_archives"),
	}
}

func (a *mongoArchive) Save(ctx context.Context, rec *SessionArchive) error {
	// Re-archiving the same code replaces the previous record.
	_, err := a.collection.ReplaceOne(ctx,
		bson.M{"code": rec.Code},
		rec,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (a *mongoArchive) GetByCode(ctx context.Context, code string) (*SessionArchive, error) {
	var rec SessionArchive
	err := a.collection.FindOne(ctx, bson.M{"code": code}).Decode(&rec)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// FromSession builds the archive record for a session, ranking both game
// types from whatever results were captured.
func FromSession(sess *model.Session, now time.Time) *SessionArchive {
	return &SessionArchive{
		Code:       sess.Code,
		CreatedAt:  sess.CreatedAt,
		ArchivedAt: now,
		Students:   sess.Students,
		Rankings: map[model.GameType][]rank.Entry{
			model.GameSprint:    rank.Rank(sess, model.GameSprint),
			model.GameEndurance: rank.Rank(sess, model.GameEndurance),
		},
	}
}
