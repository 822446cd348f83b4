package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/deepscan/internal/model"
	"github.com/nao1215/deepscan/internal/websitescan"
)

// Read returns the website scan with the given id.
// It returns websitescan.ErrNotFound if there is none.
func (d *DB) Read(ctx context.Context, id string) (*model.WebsiteScanResult, error) {
	query := `
	SELECT id, base_url, known_pages, discovery_patterns, etag, created_at, updated_at
	FROM website_scans
	WHERE id = ?
	`

	var (
		doc                  model.WebsiteScanResult
		knownJSON            string
		patternsJSON         sql.NullString
		createdAt, updatedAt string
	)
	err := d.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID,
		&doc.BaseURL,
		&knownJSON,
		&patternsJSON,
		&doc.ETag,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, websitescan.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get website scan: %w", err)
	}

	if err := json.Unmarshal([]byte(knownJSON), &doc.KnownPages); err != nil {
		return nil, fmt.Errorf("failed to parse known pages: %w", err)
	}
	if doc.KnownPages == nil {
		doc.KnownPages = make([]string, 0)
	}
	if patternsJSON.Valid {
		if err := json.Unmarshal([]byte(patternsJSON.String), &doc.DiscoveryPatterns); err != nil {
			return nil, fmt.Errorf("failed to parse discovery patterns: %w", err)
		}
	}
	doc.CreatedAt = parseTimestamp(createdAt)
	doc.UpdatedAt = parseTimestamp(updatedAt)

	return &doc, nil
}

// Create stores a new website scan with a fresh ETag.
// It returns websitescan.ErrAlreadyExists if the id is taken.
func (d *DB) Create(ctx context.Context, doc *model.WebsiteScanResult) (*model.WebsiteScanResult, error) {
	stored := doc.Clone()
	now := time.Now().UTC()
	stored.ETag = uuid.NewString()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	knownJSON, patternsJSON, err := encodeLists(stored)
	if err != nil {
		return nil, err
	}

	query := `
	INSERT INTO website_scans (id, base_url, known_pages, discovery_patterns, etag, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO NOTHING
	`
	result, err := d.db.ExecContext(ctx, query,
		stored.ID,
		stored.BaseURL,
		knownJSON,
		patternsJSON,
		stored.ETag,
		formatTimestamp(stored.CreatedAt),
		formatTimestamp(stored.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert website scan: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to insert website scan: %w", err)
	}
	if n == 0 {
		return nil, websitescan.ErrAlreadyExists
	}
	return stored, nil
}

// Replace stores doc if the stored ETag equals doc.ETag.
// It returns websitescan.ErrConflict on an ETag mismatch and
// websitescan.ErrNotFound if the document does not exist.
func (d *DB) Replace(ctx context.Context, doc *model.WebsiteScanResult) (*model.WebsiteScanResult, error) {
	stored := doc.Clone()
	stored.ETag = uuid.NewString()
	stored.UpdatedAt = time.Now().UTC()

	knownJSON, patternsJSON, err := encodeLists(stored)
	if err != nil {
		return nil, err
	}

	query := `
	UPDATE website_scans
	SET base_url = ?, known_pages = ?, discovery_patterns = ?, etag = ?, updated_at = ?
	WHERE id = ? AND etag = ?
	`
	result, err := d.db.ExecContext(ctx, query,
		stored.BaseURL,
		knownJSON,
		patternsJSON,
		stored.ETag,
		formatTimestamp(stored.UpdatedAt),
		stored.ID,
		doc.ETag,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update website scan: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to update website scan: %w", err)
	}
	if n == 1 {
		return stored, nil
	}

	var exists int
	err = d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM website_scans WHERE id = ?", stored.ID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check website scan: %w", err)
	}
	if exists == 0 {
		return nil, websitescan.ErrNotFound
	}
	return nil, websitescan.ErrConflict
}

// ListWebsiteScanIDs returns the ids of all stored website scans ordered by
// creation, optionally filtered by an id prefix.
func (d *DB) ListWebsiteScanIDs(ctx context.Context, prefix string) ([]string, error) {
	query := `SELECT id FROM website_scans WHERE id LIKE ? ESCAPE '\' ORDER BY rowid`

	escaper := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	rows, err := d.db.QueryContext(ctx, query, escaper.Replace(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list website scans: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan website scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// encodeLists serializes the list columns. Absent discovery patterns are
// stored as NULL.
func encodeLists(doc *model.WebsiteScanResult) (string, sql.NullString, error) {
	known := doc.KnownPages
	if known == nil {
		known = make([]string, 0)
	}
	knownJSON, err := json.Marshal(known)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("failed to serialize known pages: %w", err)
	}

	if doc.DiscoveryPatterns == nil {
		return string(knownJSON), sql.NullString{}, nil
	}
	patternsJSON, err := json.Marshal(doc.DiscoveryPatterns)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("failed to serialize discovery patterns: %w", err)
	}
	return string(knownJSON), sql.NullString{String: string(patternsJSON), Valid: true}, nil
}
