// Package redisstore keeps document collections in Redis.
//
// Each collection is a hash of id → JSON body plus a sorted set keeping
// insertion order. Every write publishes on <prefix>changes:<collection>;
// subscribers reload the whole collection on each message.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/chatsync/internal/common"
	"github.com/dmitrijs2005/chatsync/internal/docstore"
	"github.com/dmitrijs2005/chatsync/internal/logging"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultPrefix = "chatsync:"

type Store struct {
	client *redis.Client
	prefix string
	log    logging.Logger
}

// New connects to redisURL (redis://host:port/db).
func New(redisURL string, log logging.Logger) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewWithClient(client, DefaultPrefix, log), nil
}

func NewWithClient(client *redis.Client, prefix string, log logging.Logger) *Store {
	return &Store{client: client, prefix: prefix, log: log.With("module", "redisstore")}
}

func (s *Store) docsKey(c string) string    { return s.prefix + "docs:" + c }
func (s *Store) orderKey(c string) string   { return s.prefix + "order:" + c }
func (s *Store) seqKey(c string) string     { return s.prefix + "seq:" + c }
func (s *Store) changesKey(c string) string { return s.prefix + "changes:" + c }

func (s *Store) Subscribe(ctx context.Context, collection string) (<-chan docstore.Snapshot, error) {
	pubsub := s.client.Subscribe(ctx, s.changesKey(collection))
	// Wait for the confirmation so no change between the initial load and
	// the subscription is lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", collection, err)
	}

	snap, err := s.load(ctx, collection)
	if err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	feed := docstore.NewFeed(ctx)
	feed.Push(snap)

	go func() {
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case <-feed.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					feed.Close()
					return
				}
				snap, err := s.load(ctx, collection)
				if err != nil {
					s.log.Error(ctx, "reload collection", "collection", collection, "error", err)
					feed.Close()
					return
				}
				feed.Push(snap)
			}
		}
	}()

	return feed.C(), nil
}

func (s *Store) load(ctx context.Context, collection string) (docstore.Snapshot, error) {
	ids, err := s.client.ZRange(ctx, s.orderKey(collection), 0, -1).Result()
	if err != nil {
		return docstore.Snapshot{}, fmt.Errorf("load %s order: %w", collection, err)
	}
	snap := docstore.Snapshot{Collection: collection, Records: make([]docstore.Record, 0, len(ids))}
	if len(ids) == 0 {
		return snap, nil
	}

	bodies, err := s.client.HMGet(ctx, s.docsKey(collection), ids...).Result()
	if err != nil {
		return docstore.Snapshot{}, fmt.Errorf("load %s documents: %w", collection, err)
	}
	for i, raw := range bodies {
		str, ok := raw.(string)
		if !ok {
			// deleted between ZRANGE and HMGET
			continue
		}
		var doc docstore.Document
		if err := json.Unmarshal([]byte(str), &doc); err != nil {
			s.log.Warn(ctx, "skipping corrupt document", "collection", collection, "id", ids[i], "error", err)
			continue
		}
		snap.Records = append(snap.Records, docstore.Record{ID: ids[i], Doc: doc})
	}
	return snap, nil
}

func (s *Store) Create(ctx context.Context, collection, id string, doc docstore.Document) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", collection, err)
	}

	ok, err := s.client.HSetNX(ctx, s.docsKey(collection), id, body).Result()
	if err != nil {
		return "", fmt.Errorf("create %s/%s: %w", collection, id, err)
	}
	if !ok {
		return "", fmt.Errorf("create %s/%s: document already exists", collection, id)
	}

	seq, err := s.client.Incr(ctx, s.seqKey(collection)).Result()
	if err != nil {
		return "", fmt.Errorf("create %s/%s: %w", collection, id, err)
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, s.orderKey(collection), redis.Z{Score: float64(seq), Member: id})
		p.Publish(ctx, s.changesKey(collection), id)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("create %s/%s: %w", collection, id, err)
	}
	return id, nil
}

func (s *Store) Replace(ctx context.Context, collection, id string, doc docstore.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("replace %s/%s: %w", collection, id, err)
	}

	exists, err := s.client.HExists(ctx, s.docsKey(collection), id).Result()
	if err != nil {
		return fmt.Errorf("replace %s/%s: %w", collection, id, err)
	}
	if !exists {
		return fmt.Errorf("replace %s/%s: %w", collection, id, common.ErrorNotFound)
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, s.docsKey(collection), id, body)
		p.Publish(ctx, s.changesKey(collection), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	n, err := s.client.HDel(ctx, s.docsKey(collection), id).Result()
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s/%s: %w", collection, id, common.ErrorNotFound)
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRem(ctx, s.orderKey(collection), id)
		p.Publish(ctx, s.changesKey(collection), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

var _ docstore.Store = (*Store)(nil)
