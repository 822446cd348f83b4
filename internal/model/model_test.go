package model

import (
	"testing"
)

// TestOnDemandPageScanResultWebsiteScanRef tests website scan reference lookup.
func TestOnDemandPageScanResultWebsiteScanRef(t *testing.T) {
	t.Parallel()

	t.Run("finds deep scan ref among others", func(t *testing.T) {
		t.Parallel()

		result := &OnDemandPageScanResult{
			WebsiteScanRefs: []WebsiteScanRef{
				{ID: "report", ScanGroupType: ScanGroupConsolidatedReport},
				{ID: "deep", ScanGroupType: ScanGroupDeepScan},
			},
		}

		ref, ok := result.WebsiteScanRef(ScanGroupDeepScan)
		if !ok {
			t.Fatal("expected deep scan ref to be found")
		}
		if ref.ID != "deep" {
			t.Errorf("expected id 'deep', got %q", ref.ID)
		}
	})

	t.Run("nil refs returns false", func(t *testing.T) {
		t.Parallel()

		result := &OnDemandPageScanResult{}
		if _, ok := result.WebsiteScanRef(ScanGroupDeepScan); ok {
			t.Error("expected no ref for nil WebsiteScanRefs")
		}
	})

	t.Run("missing group returns false", func(t *testing.T) {
		t.Parallel()

		result := &OnDemandPageScanResult{
			WebsiteScanRefs: []WebsiteScanRef{
				{ID: "report", ScanGroupType: ScanGroupConsolidatedReport},
			},
		}
		if _, ok := result.WebsiteScanRef(ScanGroupDeepScan); ok {
			t.Error("expected no deep scan ref")
		}
	})
}

// TestWebsiteScanResultClone tests that clones do not alias slices.
func TestWebsiteScanResultClone(t *testing.T) {
	t.Parallel()

	t.Run("clone is independent", func(t *testing.T) {
		t.Parallel()

		orig := &WebsiteScanResult{
			ID:                "w1",
			KnownPages:        []string{"a", "b"},
			DiscoveryPatterns: []string{"p"},
			ETag:              "e1",
		}

		c := orig.Clone()
		c.KnownPages[0] = "changed"
		c.DiscoveryPatterns[0] = "changed"

		if orig.KnownPages[0] != "a" {
			t.Errorf("original KnownPages modified: %v", orig.KnownPages)
		}
		if orig.DiscoveryPatterns[0] != "p" {
			t.Errorf("original DiscoveryPatterns modified: %v", orig.DiscoveryPatterns)
		}
		if c.ETag != "e1" {
			t.Errorf("expected ETag to be copied, got %q", c.ETag)
		}
	})

	t.Run("nil discovery patterns stay nil", func(t *testing.T) {
		t.Parallel()

		orig := NewWebsiteScanResult("w1", "http://example.com")
		c := orig.Clone()
		if c.DiscoveryPatterns != nil {
			t.Errorf("expected nil DiscoveryPatterns, got %v", c.DiscoveryPatterns)
		}
		if c.HasDiscoveryPatterns() {
			t.Error("expected HasDiscoveryPatterns to be false")
		}
	})

	t.Run("nil receiver returns nil", func(t *testing.T) {
		t.Parallel()

		var w *WebsiteScanResult
		if w.Clone() != nil {
			t.Error("expected nil clone of nil aggregate")
		}
	})
}

// TestScanRequest tests scan request construction and conversion.
func TestScanRequest(t *testing.T) {
	t.Parallel()

	t.Run("new request is pending deep scan", func(t *testing.T) {
		t.Parallel()

		req := NewScanRequest("http://example.com/a", "w1", "parent")

		if req.ID == "" {
			t.Error("expected generated ID")
		}
		if req.Status != ScanRequestPending {
			t.Errorf("expected pending status, got %q", req.Status)
		}
		if !req.DeepScan {
			t.Error("expected DeepScan to be true")
		}
	})

	t.Run("page scan result references website scan", func(t *testing.T) {
		t.Parallel()

		req := NewScanRequest("http://example.com/a", "w1", "parent")
		result := req.PageScanResult()

		ref, ok := result.WebsiteScanRef(ScanGroupDeepScan)
		if !ok || ref.ID != "w1" {
			t.Errorf("expected deep scan ref to w1, got %+v (found=%v)", ref, ok)
		}

		meta := req.Metadata()
		if meta.ID != req.ID || meta.URL != req.URL || !meta.DeepScan {
			t.Errorf("unexpected metadata: %+v", meta)
		}
	})
}
