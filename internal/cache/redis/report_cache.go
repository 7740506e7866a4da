package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/oraclewatch/internal/domain"
)

// ReportCache implements domain.ReportCache using Redis strings. Each asset's
// latest deviation report is stored as JSON at key "report:{asset}",
// overwritten each round. Latest value only: keeping history is out of scope
// for the core.
type ReportCache struct {
	rdb *redis.Client
}

// NewReportCache creates a ReportCache backed by the given Client.
func NewReportCache(c *Client) *ReportCache {
	return &ReportCache{rdb: c.Underlying()}
}

func reportKey(asset string) string {
	return "report:" + asset
}

// SetReport stores report as the current report for its asset.
func (rc *ReportCache) SetReport(ctx context.Context, report domain.DeviationReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("redis: marshal report %s: %w", report.Asset, err)
	}
	if err := rc.rdb.Set(ctx, reportKey(report.Asset), payload, 0).Err(); err != nil {
		return fmt.Errorf("redis: set report %s: %w", report.Asset, err)
	}
	return nil
}

// GetReport retrieves the current report for an asset. It returns
// domain.ErrNotFound when no report has been stored.
func (rc *ReportCache) GetReport(ctx context.Context, asset string) (domain.DeviationReport, error) {
	payload, err := rc.rdb.Get(ctx, reportKey(asset)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.DeviationReport{}, domain.ErrNotFound
		}
		return domain.DeviationReport{}, fmt.Errorf("redis: get report %s: %w", asset, err)
	}

	var report domain.DeviationReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return domain.DeviationReport{}, fmt.Errorf("redis: unmarshal report %s: %w", asset, err)
	}
	return report, nil
}

// Compile-time interface check.
var _ domain.ReportCache = (*ReportCache)(nil)
