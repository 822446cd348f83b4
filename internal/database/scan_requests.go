package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nao1215/deepscan/internal/feed"
	"github.com/nao1215/deepscan/internal/model"
)

// Enqueue stores the requests that are not queued yet for their website
// scan and URL. It returns the number of requests added.
func (d *DB) Enqueue(ctx context.Context, requests []model.ScanRequest) (int, error) {
	if len(requests) == 0 {
		return 0, nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR IGNORE INTO scan_requests
		(id, url, deep_scan, website_scan_id, parent_scan_id, status, error, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	added := 0
	for _, req := range requests {
		status := req.Status
		if status == "" {
			status = model.ScanRequestPending
		}
		createdAt := req.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		updatedAt := req.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = createdAt
		}

		result, err := stmt.ExecContext(ctx,
			req.ID,
			req.URL,
			req.DeepScan,
			req.WebsiteScanID,
			req.ParentScanID,
			string(status),
			req.Error,
			formatTimestamp(createdAt),
			formatTimestamp(updatedAt),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert scan request: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to insert scan request: %w", err)
		}
		added += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit scan requests: %w", err)
	}
	return added, nil
}

// QueuedURLs returns the URLs that have a scan request for the website scan.
func (d *DB) QueuedURLs(ctx context.Context, websiteScanID string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT url FROM scan_requests WHERE website_scan_id = ? ORDER BY rowid`, websiteScanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query queued urls: %w", err)
	}
	defer rows.Close()

	urls := make([]string, 0)
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan queued url: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// Claim marks up to limit pending requests as running, oldest first.
func (d *DB) Claim(ctx context.Context, limit int) ([]model.ScanRequest, error) {
	if limit <= 0 {
		return []model.ScanRequest{}, nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, selectScanRequests+`
	WHERE status = ? ORDER BY rowid LIMIT ?
	`, string(model.ScanRequestPending), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending scan requests: %w", err)
	}
	claimed, err := scanRequestRows(rows)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for i := range claimed {
		if _, err := tx.ExecContext(ctx,
			`UPDATE scan_requests SET status = ?, updated_at = ? WHERE id = ?`,
			string(model.ScanRequestRunning), formatTimestamp(now), claimed[i].ID,
		); err != nil {
			return nil, fmt.Errorf("failed to claim scan request: %w", err)
		}
		claimed[i].Status = model.ScanRequestRunning
		claimed[i].UpdatedAt = now
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}
	return claimed, nil
}

// Complete records the final status of a request.
// It returns feed.ErrScanRequestNotFound for an unknown id.
func (d *DB) Complete(ctx context.Context, id string, status model.ScanRequestStatus, errMsg string) error {
	result, err := d.db.ExecContext(ctx,
		`UPDATE scan_requests SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(status), errMsg, formatTimestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update scan request: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update scan request: %w", err)
	}
	if n == 0 {
		return feed.ErrScanRequestNotFound
	}
	return nil
}

// ScanRequests returns every request of the website scan, oldest first.
func (d *DB) ScanRequests(ctx context.Context, websiteScanID string) ([]model.ScanRequest, error) {
	rows, err := d.db.QueryContext(ctx, selectScanRequests+`
	WHERE website_scan_id = ? ORDER BY rowid
	`, websiteScanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan requests: %w", err)
	}
	return scanRequestRows(rows)
}

const selectScanRequests = `
	SELECT id, url, deep_scan, website_scan_id, parent_scan_id, status, error, created_at, updated_at
	FROM scan_requests`

// scanRequestRows reads and closes rows.
func scanRequestRows(rows *sql.Rows) ([]model.ScanRequest, error) {
	defer rows.Close()

	requests := make([]model.ScanRequest, 0)
	for rows.Next() {
		var (
			req                  model.ScanRequest
			parentID, errMsg     sql.NullString
			status               string
			createdAt, updatedAt string
		)
		if err := rows.Scan(
			&req.ID,
			&req.URL,
			&req.DeepScan,
			&req.WebsiteScanID,
			&parentID,
			&status,
			&errMsg,
			&createdAt,
			&updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan scan request: %w", err)
		}
		req.ParentScanID = parentID.String
		req.Status = model.ScanRequestStatus(status)
		req.Error = errMsg.String
		req.CreatedAt = parseTimestamp(createdAt)
		req.UpdatedAt = parseTimestamp(updatedAt)
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scan requests: %w", err)
	}
	return requests, nil
}
