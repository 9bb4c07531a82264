// Package mongostore keeps document collections in MongoDB.
//
// Every stored document wraps the body: {_id, _seq, doc}. Subscribers
// follow a change stream and reload the collection on every event. Change
// streams need a replica set; on a standalone server the adapter falls back
// to polling.
package mongostore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/chatsync/internal/common"
	"github.com/dmitrijs2005/chatsync/internal/docstore"
	"github.com/dmitrijs2005/chatsync/internal/logging"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const countersCollection = "_counters"

type Store struct {
	db           *mongo.Database
	log          logging.Logger
	pollInterval time.Duration
}

// Connect dials uri and uses database dbName.
func Connect(ctx context.Context, uri, dbName string, log logging.Logger) (*Store, error) {
	clientOptions := options.Client().ApplyURI(uri).SetServerSelectionTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return New(client.Database(dbName), log), nil
}

func New(db *mongo.Database, log logging.Logger) *Store {
	return &Store{db: db, log: log.With("module", "mongostore"), pollInterval: 2 * time.Second}
}

func (s *Store) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

type stored struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"_seq"`
	Doc bson.M `bson:"doc"`
}

func (s *Store) Subscribe(ctx context.Context, collection string) (<-chan docstore.Snapshot, error) {
	coll := s.db.Collection(collection)

	stream, err := coll.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		s.log.Warn(ctx, "change stream unavailable, polling", "collection", collection, "error", err)
		stream = nil
	}

	snap, err := s.load(ctx, collection)
	if err != nil {
		if stream != nil {
			_ = stream.Close(context.Background())
		}
		return nil, err
	}

	feed := docstore.NewFeed(ctx)
	feed.Push(snap)

	if stream != nil {
		go s.follow(ctx, feed, stream, collection)
	} else {
		go s.poll(ctx, feed, collection)
	}
	return feed.C(), nil
}

func (s *Store) follow(ctx context.Context, feed *docstore.Feed, stream *mongo.ChangeStream, collection string) {
	defer feed.Close()
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		snap, err := s.load(ctx, collection)
		if err != nil {
			s.log.Error(ctx, "reload collection", "collection", collection, "error", err)
			return
		}
		feed.Push(snap)
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		s.log.Error(ctx, "change stream failed", "collection", collection, "error", err)
	}
}

func (s *Store) poll(ctx context.Context, feed *docstore.Feed, collection string) {
	defer feed.Close()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-feed.Done():
			return
		case <-ticker.C:
			snap, err := s.load(ctx, collection)
			if err != nil {
				if ctx.Err() == nil {
					s.log.Error(ctx, "poll collection", "collection", collection, "error", err)
				}
				return
			}
			feed.Push(snap)
		}
	}
}

func (s *Store) load(ctx context.Context, collection string) (docstore.Snapshot, error) {
	cur, err := s.db.Collection(collection).Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_seq", Value: 1}}))
	if err != nil {
		return docstore.Snapshot{}, fmt.Errorf("load %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	snap := docstore.Snapshot{Collection: collection, Records: []docstore.Record{}}
	for cur.Next(ctx) {
		var st stored
		if err := cur.Decode(&st); err != nil {
			s.log.Warn(ctx, "skipping undecodable document", "collection", collection, "error", err)
			continue
		}
		doc, err := toDocument(st.Doc)
		if err != nil {
			s.log.Warn(ctx, "skipping unconvertible document", "collection", collection, "id", st.ID, "error", err)
			continue
		}
		snap.Records = append(snap.Records, docstore.Record{ID: st.ID, Doc: doc})
	}
	if err := cur.Err(); err != nil {
		return docstore.Snapshot{}, fmt.Errorf("load %s: %w", collection, err)
	}
	return snap, nil
}

// toDocument converts BSON values to their JSON-compatible form through
// relaxed extended JSON.
func toDocument(m bson.M) (docstore.Document, error) {
	if m == nil {
		return docstore.Document{}, nil
	}
	b, err := bson.MarshalExtJSON(m, false, false)
	if err != nil {
		return nil, err
	}
	var doc docstore.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store) nextSeq(ctx context.Context, collection string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection(countersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": collection},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	return counter.Seq, err
}

func (s *Store) Create(ctx context.Context, collection, id string, doc docstore.Document) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	seq, err := s.nextSeq(ctx, collection)
	if err != nil {
		return "", fmt.Errorf("create %s/%s: sequence: %w", collection, id, err)
	}

	_, err = s.db.Collection(collection).InsertOne(ctx, bson.M{
		"_id":  id,
		"_seq": seq,
		"doc":  map[string]any(doc),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("create %s/%s: document already exists", collection, id)
		}
		return "", fmt.Errorf("create %s/%s: %w", collection, id, err)
	}
	return id, nil
}

func (s *Store) Replace(ctx context.Context, collection, id string, doc docstore.Document) error {
	res, err := s.db.Collection(collection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"doc": map[string]any(doc)}},
	)
	if err != nil {
		return fmt.Errorf("replace %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("replace %s/%s: %w", collection, id, common.ErrorNotFound)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete %s/%s: %w", collection, id, common.ErrorNotFound)
	}
	return nil
}

var _ docstore.Store = (*Store)(nil)
