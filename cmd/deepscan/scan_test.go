package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spf13/viper"

	"github.com/nao1215/deepscan/internal/model"
)

// TestBuildScanInput tests scan input validation.
func TestBuildScanInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		values  map[string]any
		wantURL string
		wantErr error
	}{
		{
			name:    "page scan",
			values:  map[string]any{"id": "s1", "url": "https://example.com/"},
			wantURL: "https://example.com/",
		},
		{
			name:    "deep scan",
			values:  map[string]any{"id": "s1", "url": "https://example.com/", "deep-scan": true, "website-id": "w1"},
			wantURL: "https://example.com/",
		},
		{
			name:    "seed without trailing slash is normalized",
			values:  map[string]any{"id": "s1", "url": "http://127.0.0.1:8080", "deep-scan": true, "website-id": "w1"},
			wantURL: "http://127.0.0.1:8080/",
		},
		{
			name:    "missing id",
			values:  map[string]any{"url": "https://example.com/"},
			wantErr: errMissingScanID,
		},
		{
			name:    "missing url",
			values:  map[string]any{"id": "s1"},
			wantErr: errMissingScanURL,
		},
		{
			name:    "deep scan without website id",
			values:  map[string]any{"id": "s1", "url": "https://example.com/", "deep-scan": true},
			wantErr: errMissingWebsiteID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := viper.New()
			for k, val := range tt.values {
				v.Set(k, val)
			}

			input, err := buildScanInput(v)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("buildScanInput() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if input.metadata.ID != "s1" || input.metadata.URL != tt.wantURL {
				t.Errorf("unexpected metadata: %+v, want url %q", input.metadata, tt.wantURL)
			}
			if got := input.pageScanResult().URL; got != tt.wantURL {
				t.Errorf("pageScanResult().URL = %q, want %q", got, tt.wantURL)
			}
		})
	}
}

// TestScanInputPageScanResult tests the website scan reference of a scan.
func TestScanInputPageScanResult(t *testing.T) {
	t.Parallel()

	t.Run("deep scan references website scan", func(t *testing.T) {
		t.Parallel()

		input := &scanInput{
			metadata:  &model.ScanMetadata{ID: "s1", URL: "https://example.com/", DeepScan: true},
			websiteID: "w1",
		}
		ref, ok := input.pageScanResult().WebsiteScanRef(model.ScanGroupDeepScan)
		if !ok || ref.ID != "w1" {
			t.Errorf("expected deep scan ref to w1, got %+v (found=%v)", ref, ok)
		}
	})

	t.Run("plain page scan has no refs", func(t *testing.T) {
		t.Parallel()

		input := &scanInput{metadata: &model.ScanMetadata{ID: "s1", URL: "https://example.com/"}}
		if refs := input.pageScanResult().WebsiteScanRefs; refs != nil {
			t.Errorf("expected nil refs, got %+v", refs)
		}
	})
}

// TestNewReportWriter tests output format selection.
func TestNewReportWriter(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.Set("json", true)
	v.Set("markdown", true)

	if _, err := newReportWriter(v, &bytes.Buffer{}); !errors.Is(err, errConflictingFormats) {
		t.Errorf("expected errConflictingFormats, got %v", err)
	}
}
