// Package firestorestore maps document collections onto Cloud Firestore,
// whose native snapshot listeners match the store contract directly.
package firestorestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/dmitrijs2005/chatsync/internal/common"
	"github.com/dmitrijs2005/chatsync/internal/docstore"
	"github.com/dmitrijs2005/chatsync/internal/logging"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// createdField orders documents by creation; it never leaves the adapter.
const createdField = "_created"

type Config struct {
	ProjectID       string
	CredentialsFile string
}

type Store struct {
	client *firestore.Client
	log    logging.Logger
}

// New connects to Firestore. FIRESTORE_EMULATOR_HOST is honored by the
// client library.
func New(ctx context.Context, cfg Config, log logging.Logger) (*Store, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &Store{client: client, log: log.With("module", "firestorestore")}, nil
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) Subscribe(ctx context.Context, collection string) (<-chan docstore.Snapshot, error) {
	feed := docstore.NewFeed(ctx)
	it := s.client.Collection(collection).OrderBy(createdField, firestore.Asc).Snapshots(ctx)

	go func() {
		defer it.Stop()
		defer feed.Close()
		for {
			qs, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && !errors.Is(err, iterator.Done) {
					s.log.Error(ctx, "snapshot listener failed", "collection", collection, "error", err)
				}
				return
			}
			docs, err := qs.Documents.GetAll()
			if err != nil {
				s.log.Error(ctx, "read snapshot", "collection", collection, "error", err)
				return
			}
			snap := docstore.Snapshot{Collection: collection, Records: make([]docstore.Record, 0, len(docs))}
			for _, d := range docs {
				snap.Records = append(snap.Records, docstore.Record{ID: d.Ref.ID, Doc: fromData(d.Data())})
			}
			feed.Push(snap)
		}
	}()

	return feed.C(), nil
}

func (s *Store) Create(ctx context.Context, collection, id string, doc docstore.Document) (string, error) {
	coll := s.client.Collection(collection)
	ref := coll.NewDoc()
	if id != "" {
		ref = coll.Doc(id)
	}
	data := toData(doc)
	data[createdField] = firestore.ServerTimestamp

	if _, err := ref.Create(ctx, data); err != nil {
		return "", fmt.Errorf("create %s/%s: %w", collection, ref.ID, err)
	}
	return ref.ID, nil
}

func (s *Store) Replace(ctx context.Context, collection, id string, doc docstore.Document) error {
	ref := s.client.Collection(collection).Doc(id)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		cur, err := tx.Get(ref)
		if err != nil {
			return err
		}
		data := toData(doc)
		if created, err := cur.DataAt(createdField); err == nil {
			data[createdField] = created
		}
		return tx.Set(ref, data)
	})
	if err != nil {
		return fmt.Errorf("replace %s/%s: %w", collection, id, mapErr(err))
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.client.Collection(collection).Doc(id).Delete(ctx, firestore.Exists)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, mapErr(err))
	}
	return nil
}

func mapErr(err error) error {
	if status.Code(err) == codes.NotFound {
		return common.ErrorNotFound
	}
	return err
}

func toData(doc docstore.Document) map[string]interface{} {
	data := make(map[string]interface{}, len(doc)+1)
	for k, v := range docstore.Clone(doc) {
		data[k] = v
	}
	return data
}

func fromData(data map[string]interface{}) docstore.Document {
	doc := make(docstore.Document, len(data))
	for k, v := range data {
		if k == createdField {
			continue
		}
		doc[k] = v
	}
	return doc
}

var _ docstore.Store = (*Store)(nil)
