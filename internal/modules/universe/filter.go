package universe

import (
	"fmt"
	"math"
	"sort"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/timeseries"
)

// FilterConfig narrows the fund universe before selection.
type FilterConfig struct {
	Include             []string // if non-empty, only these ids survive
	Exclude             []string
	VolatilityThreshold float64 // drop series more volatile than this; <= 0 disables
}

// Filter applies include, exclude and volatility rules, preserving input order.
func Filter(series []*timeseries.TimeSeries, cfg FilterConfig) []*timeseries.TimeSeries {
	include := toSet(cfg.Include)
	exclude := toSet(cfg.Exclude)

	out := make([]*timeseries.TimeSeries, 0, len(series))
	for _, ts := range series {
		if len(include) > 0 && !include[ts.ID()] {
			continue
		}
		if exclude[ts.ID()] {
			continue
		}
		if cfg.VolatilityThreshold > 0 && !(ts.StdReturns() <= cfg.VolatilityThreshold) {
			continue
		}
		out = append(out, ts)
	}
	return out
}

// SelectTop returns the n series with the highest average return, best first.
// Ties are broken by id and series with an undefined average sort last.
func SelectTop(series []*timeseries.TimeSeries, n int) ([]*timeseries.TimeSeries, error) {
	if n <= 0 {
		return nil, fmt.Errorf("number of funds %d must be positive: %w", n, domain.ErrConfig)
	}
	if len(series) < n {
		return nil, fmt.Errorf("only %d funds available, %d requested: %w", len(series), n, domain.ErrConfig)
	}

	type ranked struct {
		ts  *timeseries.TimeSeries
		avg float64
	}
	items := make([]ranked, len(series))
	for i, ts := range series {
		items[i] = ranked{ts: ts, avg: ts.AverageReturns()}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		aNaN, bNaN := math.IsNaN(a.avg), math.IsNaN(b.avg)
		if aNaN != bNaN {
			return bNaN
		}
		if !aNaN && a.avg != b.avg {
			return a.avg > b.avg
		}
		return a.ts.ID() < b.ts.ID()
	})

	out := make([]*timeseries.TimeSeries, n)
	for i := range out {
		out[i] = items[i].ts
	}
	return out, nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
