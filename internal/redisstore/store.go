package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/nao1215/deepscan/internal/model"
	"github.com/nao1215/deepscan/internal/websitescan"
)

// DefaultKeyPrefix namespaces all keys written by a Store.
const DefaultKeyPrefix = "deepscan"

// Store is a websitescan.Store and feed.WorkQueue backed by Redis.
type Store struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithKeyPrefix sets the key namespace.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a Store on client. The client is owned by the caller.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultKeyPrefix,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(parts ...string) string {
	return s.prefix + ":" + strings.Join(parts, ":")
}

func (s *Store) websiteKey(id string) string { return s.key("website", id) }
func (s *Store) websitesKey() string { return s.key("websites") }
func (s *Store) urlsKey(id string) string { return s.key("website", id, "urls") }
func (s *Store) requestsKey(id string) string { return s.key("website", id, "requests") }
func (s *Store) requestKey(id string) string { return s.key("request", id) }
func (s *Store) pendingKey() string { return s.key("pending") }

// Read returns the website scan with the given id.
// It returns websitescan.ErrNotFound if there is none.
func (s *Store) Read(ctx context.Context, id string) (*model.WebsiteScanResult, error) {
	return s.read(ctx, s.client, id)
}

// getter is the read side shared by *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Store) read(ctx context.Context, c getter, id string) (*model.WebsiteScanResult, error) {
	data, err := c.Get(ctx, s.websiteKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, websitescan.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get website scan: %w", err)
	}

	var doc model.WebsiteScanResult
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse website scan: %w", err)
	}
	if doc.KnownPages == nil {
		doc.KnownPages = make([]string, 0)
	}
	return &doc, nil
}

// Create stores a new website scan with a fresh ETag.
// It returns websitescan.ErrAlreadyExists if the id is taken.
func (s *Store) Create(ctx context.Context, doc *model.WebsiteScanResult) (*model.WebsiteScanResult, error) {
	stored := doc.Clone()
	now := time.Now().UTC()
	stored.ETag = uuid.NewString()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize website scan: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.websiteKey(stored.ID), data, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to insert website scan: %w", err)
	}
	if !ok {
		return nil, websitescan.ErrAlreadyExists
	}

	err = s.client.ZAdd(ctx, s.websitesKey(), redis.Z{
		Score:  float64(now.UnixNano()),
		Member: stored.ID,
	}).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to index website scan: %w", err)
	}
	return stored, nil
}

// Replace stores doc if the stored ETag equals doc.ETag and the key is not
// modified by another client during the write.
func (s *Store) Replace(ctx context.Context, doc *model.WebsiteScanResult) (*model.WebsiteScanResult, error) {
	stored := doc.Clone()
	stored.ETag = uuid.NewString()
	stored.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize website scan: %w", err)
	}

	key := s.websiteKey(doc.ID)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := s.read(ctx, tx, doc.ID)
		if err != nil {
			return err
		}
		if current.ETag != doc.ETag {
			return websitescan.ErrConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		s.logger.Debug("website scan changed during write", "websiteScanId", doc.ID)
		return nil, websitescan.ErrConflict
	}
	if err != nil {
		if errors.Is(err, websitescan.ErrConflict) || errors.Is(err, websitescan.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update website scan: %w", err)
	}
	return stored, nil
}

// ListWebsiteScanIDs returns the ids of all stored website scans ordered by
// creation, optionally filtered by an id prefix.
func (s *Store) ListWebsiteScanIDs(ctx context.Context, prefix string) ([]string, error) {
	members, err := s.client.ZRange(ctx, s.websitesKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list website scans: %w", err)
	}

	ids := make([]string, 0, len(members))
	for _, id := range members {
		if strings.HasPrefix(id, prefix) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
