package mongostore

import (
	"context"
	"os"
	"testing"

	"github.com/dmitrijs2005/chatsync/internal/common"
	"github.com/dmitrijs2005/chatsync/internal/docstore"
	"github.com/dmitrijs2005/chatsync/internal/docstore/storetest"
	"github.com/dmitrijs2005/chatsync/internal/logging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestToDocument(t *testing.T) {
	doc, err := toDocument(bson.M{
		"name":         "Team",
		"lastActivity": int64(1_700_000_000_000),
		"members":      bson.A{bson.M{"uid": "a"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Team", doc["name"])
	assert.Equal(t, 1_700_000_000_000.0, doc["lastActivity"])
	assert.Equal(t, "a", doc["members"].([]any)[0].(map[string]any)["uid"])

	empty, err := toDocument(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMockedWrites(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create", func(mt *mtest.T) {
		s := New(mt.DB, logging.Discard())
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{{Key: "_id", Value: "users"}, {Key: "seq", Value: int64(1)}}}),
			mtest.CreateSuccessResponse(),
		)
		id, err := s.Create(context.Background(), "users", "u1", docstore.Document{"name": "Ann"})
		require.NoError(mt, err)
		require.Equal(mt, "u1", id)
	})

	mt.Run("create duplicate", func(mt *mtest.T) {
		s := New(mt.DB, logging.Discard())
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{{Key: "_id", Value: "users"}, {Key: "seq", Value: int64(2)}}}),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key error"}),
		)
		_, err := s.Create(context.Background(), "users", "u1", docstore.Document{})
		require.ErrorContains(mt, err, "already exists")
	})

	mt.Run("replace missing", func(mt *mtest.T) {
		s := New(mt.DB, logging.Discard())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))
		err := s.Replace(context.Background(), "users", "ghost", docstore.Document{})
		require.ErrorIs(mt, err, common.ErrorNotFound)
	})

	mt.Run("replace", func(mt *mtest.T) {
		s := New(mt.DB, logging.Discard())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		require.NoError(mt, s.Replace(context.Background(), "users", "u1", docstore.Document{"name": "Anna"}))
	})

	mt.Run("delete", func(mt *mtest.T) {
		s := New(mt.DB, logging.Discard())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		require.NoError(mt, s.Delete(context.Background(), "users", "u1"))

		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		require.ErrorIs(mt, s.Delete(context.Background(), "users", "u1"), common.ErrorNotFound)
	})
}

// Runs against a real server when CHATSYNC_TEST_MONGO_URI is set.
func TestMongoStore_Conformance(t *testing.T) {
	uri := os.Getenv("CHATSYNC_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("CHATSYNC_TEST_MONGO_URI not set")
	}
	storetest.Run(t, func(t *testing.T) docstore.Store {
		s, err := Connect(context.Background(), uri, "chatsync_test_"+uuid.NewString()[:8], logging.Discard())
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = s.db.Drop(context.Background())
			_ = s.Close(context.Background())
		})
		return s
	})
}
