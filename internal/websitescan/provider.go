package websitescan

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/deepscan/internal/model"
)

// Provider reads website scan aggregates.
type Provider struct {
	store Store
}

// NewProvider creates a Provider backed by store.
func NewProvider(store Store) *Provider {
	return &Provider{store: store}
}

// Read returns the aggregate with the given id.
func (p *Provider) Read(ctx context.Context, id string) (*model.WebsiteScanResult, error) {
	doc, err := p.store.Read(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read website scan %s: %w", id, err)
	}
	return doc, nil
}

// Ensure returns the aggregate with the given id, creating an empty one
// for baseURL when it does not exist yet. Concurrent callers racing to
// create the same aggregate all end up with the stored document.
func (p *Provider) Ensure(ctx context.Context, id, baseURL string) (*model.WebsiteScanResult, error) {
	doc, err := p.store.Read(ctx, id)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to read website scan %s: %w", id, err)
	}

	doc, err = p.store.Create(ctx, model.NewWebsiteScanResult(id, baseURL))
	if errors.Is(err, ErrAlreadyExists) {
		return p.Read(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create website scan %s: %w", id, err)
	}
	return doc, nil
}
