// Package universe loads the candidate fund series and the risk-free benchmark,
// and narrows the fund universe down to the assets a search runs over.
package universe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aristath/frontier/internal/modules/timeseries"
)

// seriesRecord is the on-disk shape of one return series. Extra fields such as
// precomputed multipliers are ignored; they are always derived from returns.
type seriesRecord struct {
	ID      string    `json:"id"`
	Returns []float64 `json:"returns"`
}

type seriesFile struct {
	Timeseries []seriesRecord `json:"timeseries"`
}

// LoadSeriesFile reads a {"timeseries": [...]} document.
func LoadSeriesFile(path string) ([]*timeseries.TimeSeries, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read series file: %w", err)
	}

	var file seriesFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse series file %s: %w", path, err)
	}

	out := make([]*timeseries.TimeSeries, 0, len(file.Timeseries))
	for _, rec := range file.Timeseries {
		ts, err := timeseries.New(rec.ID, rec.Returns)
		if err != nil {
			return nil, fmt.Errorf("series %q: %w", rec.ID, err)
		}
		out = append(out, ts)
	}
	return out, nil
}

// LoadRiskFreeFile reads a single {"id", "returns"} document.
func LoadRiskFreeFile(path string) (*timeseries.TimeSeries, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read risk-free file: %w", err)
	}

	var rec seriesRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse risk-free file %s: %w", path, err)
	}
	return timeseries.New(rec.ID, rec.Returns)
}

// Source supplies the inputs of a search.
type Source interface {
	Funds(ctx context.Context) ([]*timeseries.TimeSeries, error)
	RiskFree(ctx context.Context) (*timeseries.TimeSeries, error)
}

// FileSource reads models.json and risk_free.json from a directory.
type FileSource struct {
	Dir string
}

// NewFileSource creates a source rooted at dir
func NewFileSource(dir string) *FileSource {
	return &FileSource{Dir: dir}
}

// Funds loads the fund universe
func (s *FileSource) Funds(ctx context.Context) ([]*timeseries.TimeSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadSeriesFile(filepath.Join(s.Dir, "models.json"))
}

// RiskFree loads the benchmark series
func (s *FileSource) RiskFree(ctx context.Context) (*timeseries.TimeSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadRiskFreeFile(filepath.Join(s.Dir, "risk_free.json"))
}

// StaticSource serves series already held in memory.
type StaticSource struct {
	funds    []*timeseries.TimeSeries
	riskFree *timeseries.TimeSeries
}

// NewStaticSource creates a source over fixed series
func NewStaticSource(funds []*timeseries.TimeSeries, riskFree *timeseries.TimeSeries) *StaticSource {
	return &StaticSource{funds: funds, riskFree: riskFree}
}

// Funds returns the fund universe
func (s *StaticSource) Funds(ctx context.Context) ([]*timeseries.TimeSeries, error) {
	return s.funds, ctx.Err()
}

// RiskFree returns the benchmark series
func (s *StaticSource) RiskFree(ctx context.Context) (*timeseries.TimeSeries, error) {
	return s.riskFree, ctx.Err()
}
