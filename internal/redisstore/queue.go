package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nao1215/deepscan/internal/feed"
	"github.com/nao1215/deepscan/internal/model"
)

// maxUpdateAttempts bounds the WATCH retries of a scan request update.
const maxUpdateAttempts = 3

// Enqueue stores the requests that are not queued yet for their website
// scan and URL. It returns the number of requests added.
func (s *Store) Enqueue(ctx context.Context, requests []model.ScanRequest) (int, error) {
	added := 0
	for _, req := range requests {
		if req.Status == "" {
			req.Status = model.ScanRequestPending
		}
		if req.CreatedAt.IsZero() {
			req.CreatedAt = time.Now().UTC()
		}
		if req.UpdatedAt.IsZero() {
			req.UpdatedAt = req.CreatedAt
		}

		data, err := json.Marshal(req)
		if err != nil {
			return added, fmt.Errorf("failed to serialize scan request: %w", err)
		}

		ok, err := s.client.HSetNX(ctx, s.urlsKey(req.WebsiteScanID), req.URL, req.ID).Result()
		if err != nil {
			return added, fmt.Errorf("failed to reserve scan request url: %w", err)
		}
		if !ok {
			continue
		}

		_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.requestKey(req.ID), data, 0)
			pipe.RPush(ctx, s.requestsKey(req.WebsiteScanID), req.ID)
			if req.Status == model.ScanRequestPending {
				pipe.RPush(ctx, s.pendingKey(), req.ID)
			}
			return nil
		})
		if err != nil {
			return added, fmt.Errorf("failed to insert scan request: %w", err)
		}
		added++
	}
	return added, nil
}

// QueuedURLs returns the URLs that have a scan request for the website scan.
func (s *Store) QueuedURLs(ctx context.Context, websiteScanID string) ([]string, error) {
	requests, err := s.ScanRequests(ctx, websiteScanID)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(requests))
	for _, req := range requests {
		urls = append(urls, req.URL)
	}
	return urls, nil
}

// Claim marks up to limit pending requests as running, oldest first.
func (s *Store) Claim(ctx context.Context, limit int) ([]model.ScanRequest, error) {
	if limit <= 0 {
		return []model.ScanRequest{}, nil
	}

	ids, err := s.client.LPopCount(ctx, s.pendingKey(), limit).Result()
	if errors.Is(err, redis.Nil) {
		return []model.ScanRequest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim scan requests: %w", err)
	}

	claimed := make([]model.ScanRequest, 0, len(ids))
	for _, id := range ids {
		req, err := s.updateRequest(ctx, id, func(r *model.ScanRequest) {
			r.Status = model.ScanRequestRunning
		})
		if errors.Is(err, feed.ErrScanRequestNotFound) {
			s.logger.Warn("pending scan request has no record", "requestId", id)
			continue
		}
		if err != nil {
			return claimed, err
		}
		claimed = append(claimed, *req)
	}
	return claimed, nil
}

// Complete records the final status of a claimed request. A request set
// back to pending is appended to the pending list so it can be claimed again.
func (s *Store) Complete(ctx context.Context, id string, status model.ScanRequestStatus, errMsg string) error {
	_, err := s.updateRequest(ctx, id, func(r *model.ScanRequest) {
		r.Status = status
		r.Error = errMsg
	})
	return err
}

// ScanRequests returns every request of the website scan, oldest first.
func (s *Store) ScanRequests(ctx context.Context, websiteScanID string) ([]model.ScanRequest, error) {
	ids, err := s.client.LRange(ctx, s.requestsKey(websiteScanID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list scan requests: %w", err)
	}
	if len(ids) == 0 {
		return []model.ScanRequest{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.requestKey(id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get scan requests: %w", err)
	}

	requests := make([]model.ScanRequest, 0, len(values))
	for _, v := range values {
		data, ok := v.(string)
		if !ok {
			continue
		}
		var req model.ScanRequest
		if err := json.Unmarshal([]byte(data), &req); err != nil {
			return nil, fmt.Errorf("failed to parse scan request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, nil
}

// updateRequest applies fn to the stored request under WATCH. A request
// that fn moves to pending is pushed onto the pending list.
func (s *Store) updateRequest(ctx context.Context, id string, fn func(*model.ScanRequest)) (*model.ScanRequest, error) {
	key := s.requestKey(id)

	var updated model.ScanRequest
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return feed.ErrScanRequestNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get scan request: %w", err)
		}
		if err := json.Unmarshal(data, &updated); err != nil {
			return fmt.Errorf("failed to parse scan request: %w", err)
		}

		requeue := updated.Status != model.ScanRequestPending
		fn(&updated)
		requeue = requeue && updated.Status == model.ScanRequestPending
		updated.UpdatedAt = time.Now().UTC()

		out, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("failed to serialize scan request: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			if requeue {
				pipe.RPush(ctx, s.pendingKey(), id)
			}
			return nil
		})
		return err
	}

	var err error
	for range maxUpdateAttempts {
		err = s.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
