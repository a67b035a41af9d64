package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SaTyAbHr2005/sentrix/internal/app/crawler"
	"github.com/SaTyAbHr2005/sentrix/internal/app/detector"
	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
)

// DiscoveryStage runs the crawler and commits its summary.
type DiscoveryStage struct {
	crawler *crawler.Crawler
}

func NewDiscoveryStage(c *crawler.Crawler) *DiscoveryStage { return &DiscoveryStage{crawler: c} }

func (s *DiscoveryStage) Run(ctx context.Context, task *scanning.Task) (json.RawMessage, error) {
	summary, err := s.crawler.Crawl(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}
	return json.Marshal(summary)
}

// DetectionStage runs the leak detector and commits its summary.
type DetectionStage struct {
	detector *detector.Detector
}

func NewDetectionStage(d *detector.Detector) *DetectionStage { return &DetectionStage{detector: d} }

func (s *DetectionStage) Run(ctx context.Context, task *scanning.Task) (json.RawMessage, error) {
	summary, err := s.detector.Detect(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("detection: %w", err)
	}
	return json.Marshal(summary)
}
