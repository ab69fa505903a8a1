package data

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/swarm-backtester/pkg/types"
)

// PriceQuery selects the part of a data file used for a run
type PriceQuery struct {
	Source string
	Start  time.Time
	End    time.Time
	// Period keeps only the trailing window, e.g. "180d"; empty keeps everything
	Period string
}

// DataManager combines loading, filtering and validation
type DataManager struct {
	provider DataProvider
	filter   *DefaultDataFilter
	log      zerolog.Logger
}

// NewDataManager creates a data manager reading CSV files in format
func NewDataManager(format CSVColumnMapping, log zerolog.Logger) *DataManager {
	return NewDataManagerWithProvider(NewCachedProvider(NewCSVProviderWithFormat(format, log), log), log)
}

// NewDataManagerWithProvider creates a data manager with a custom provider
func NewDataManagerWithProvider(provider DataProvider, log zerolog.Logger) *DataManager {
	return &DataManager{provider: provider, filter: NewDefaultDataFilter(), log: log}
}

// LoadPrices loads candles for q and returns their close prices. Candles are
// sorted and de-duplicated before validation so the index strictly increases.
func (dm *DataManager) LoadPrices(q PriceQuery) (types.Series, error) {
	candles, err := dm.provider.LoadData(q.Source)
	if err != nil {
		return types.Series{}, err
	}

	candles = dm.filter.RemoveDuplicates(dm.filter.SortByTimestamp(candles))
	candles = dm.filter.FilterByDateRange(candles, q.Start, q.End)
	if q.Period != "" {
		d, ok := ParseTrailingPeriod(q.Period)
		if !ok {
			return types.Series{}, fmt.Errorf("invalid trailing period %q", q.Period)
		}
		candles = dm.filter.FilterByPeriod(candles, d)
	}

	if err := dm.filter.ValidateTimeSequence(candles); err != nil {
		return types.Series{}, err
	}
	if err := dm.provider.ValidateData(candles); err != nil {
		return types.Series{}, err
	}

	dm.log.Debug().Str("source", q.Source).Int("bars", len(candles)).Msg("price series ready")
	return types.CloseSeries(candles), nil
}

// ParseTrailingPeriod parses period strings like "7d", "30days" or "168h"
func ParseTrailingPeriod(s string) (time.Duration, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasSuffix(s, "days") {
		s = strings.TrimSuffix(s, "days") + "d"
	}
	if strings.HasSuffix(s, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || n <= 0 {
			return 0, false
		}
		return time.Duration(n) * 24 * time.Hour, true
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d, true
	}
	return 0, false
}
