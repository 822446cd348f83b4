package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nao1215/deepscan/internal/discovery"
	"github.com/nao1215/deepscan/internal/model"
	"github.com/nao1215/deepscan/internal/pipeline"
)

// Errors returned for missing scan input.
var (
	errMissingScanID    = errors.New("scan id is required (--id or DEEPSCAN_ID)")
	errMissingScanURL   = errors.New("scan url is required (--url or DEEPSCAN_URL)")
	errMissingWebsiteID = errors.New("website scan id is required for a deep scan (--website-id or DEEPSCAN_WEBSITE_ID)")
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a page and optionally deep scan its website",
		Long: `Scan loads a single page. With --deep-scan it also crawls the page's links,
records the in-scope pages on the website scan given by --website-id and
queues a page scan for every page the website scan did not know yet.
Queued scans are run by "deepscan worker".

The website scan is created on first use. Its discovery pattern is derived
from the first page scanned and restricts later crawls to the same site.

Every flag can also be set with a DEEPSCAN_ environment variable, for
example DEEPSCAN_ID, DEEPSCAN_URL and DEEPSCAN_WEBSITE_ID.

Examples:
  # Scan a page
  deepscan scan --id 3f1c... --url https://example.com/

  # Scan a page and crawl its website
  deepscan scan --id 3f1c... --url https://example.com/ --deep-scan --website-id example

  # Output the page result as JSON
  deepscan scan --id 3f1c... --url https://example.com/ --json`,
		Args: cobra.NoArgs,
		RunE: runScanCmd,
	}

	cmd.Flags().String("id", "", "Page scan id")
	cmd.Flags().String("url", "", "Page URL to scan")
	cmd.Flags().Bool("deep-scan", false, "Crawl the website from the scanned page")
	cmd.Flags().String("website-id", "", "Website scan id that collects the discovered pages")

	addOutputFlags(cmd)

	return cmd
}

// scanInput is the validated input of one page scan.
type scanInput struct {
	metadata  *model.ScanMetadata
	websiteID string
}

// buildScanInput reads the scan input from flags and environment.
func buildScanInput(v *viper.Viper) (*scanInput, error) {
	metadata := &model.ScanMetadata{
		ID:       v.GetString("id"),
		URL:      v.GetString("url"),
		DeepScan: v.GetBool("deep-scan"),
	}
	if metadata.ID == "" {
		return nil, errMissingScanID
	}
	if metadata.URL == "" {
		return nil, errMissingScanURL
	}
	// The crawler stores pages in normalized form; the seed must match them.
	metadata.URL = discovery.NormalizeURL(metadata.URL)

	input := &scanInput{metadata: metadata, websiteID: v.GetString("website-id")}
	if metadata.DeepScan && input.websiteID == "" {
		return nil, errMissingWebsiteID
	}
	return input, nil
}

// pageScanResult creates the result the page scan fills in. Deep scans
// reference their website scan.
func (in *scanInput) pageScanResult() *model.OnDemandPageScanResult {
	result := &model.OnDemandPageScanResult{
		ID:  in.metadata.ID,
		URL: in.metadata.URL,
	}
	if in.websiteID != "" {
		result.WebsiteScanRefs = []model.WebsiteScanRef{
			{ID: in.websiteID, ScanGroupType: model.ScanGroupDeepScan},
		}
	}
	return result
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, _ []string) error {
	v, err := newViper(cmd)
	if err != nil {
		return err
	}

	input, err := buildScanInput(v)
	if err != nil {
		return err
	}

	cfg, err := loadServiceConfig(v)
	if err != nil {
		return err
	}

	logger := newLogger(v, false)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := openService(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	return runScan(ctx, cmd, v, svc, input)
}

// runScan runs the page scan pipeline and writes the page result.
func runScan(ctx context.Context, cmd *cobra.Command, v *viper.Viper, svc *service, input *scanInput) error {
	if input.websiteID != "" {
		if _, err := svc.websiteScans().Ensure(ctx, input.websiteID, input.metadata.URL); err != nil {
			return err
		}
	}

	page, err := svc.newPage(ctx)
	if err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	scan := pipeline.NewScan(input.metadata, input.pageScanResult(), page)

	startTime := time.Now()
	execErr := svc.newPipeline().Execute(ctx, scan)
	svc.logger.Info("scan finished",
		"scanId", input.metadata.ID,
		"url", input.metadata.URL,
		"steps", scan.PerformedSteps,
		"elapsed", time.Since(startTime).Round(time.Millisecond).String(),
	)

	if input.websiteID != "" {
		recordSeed(context.WithoutCancel(ctx), svc, input, execErr)
	}

	if err := writePageResult(cmd, v, scan.Result); err != nil {
		return err
	}
	if execErr != nil {
		return fmt.Errorf("scan %s failed: %w", input.metadata.ID, execErr)
	}
	return nil
}

// recordSeed stores the scanned page as a finished scan request of its
// website scan so that workers never queue it again.
func recordSeed(ctx context.Context, svc *service, input *scanInput, scanErr error) {
	req := model.NewScanRequest(input.metadata.URL, input.websiteID, "")
	req.ID = input.metadata.ID
	req.DeepScan = input.metadata.DeepScan
	req.Status = model.ScanRequestCompleted
	if scanErr != nil {
		req.Status = model.ScanRequestFailed
		req.Error = scanErr.Error()
	}

	if _, err := svc.store.Enqueue(ctx, []model.ScanRequest{req}); err != nil {
		svc.logger.Warn("failed to record scanned page", "scanId", req.ID, "websiteScanId", input.websiteID, "error", err)
	}
}
