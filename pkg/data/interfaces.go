package data

import (
	"time"

	"github.com/ducminhle1904/swarm-backtester/pkg/types"
)

// DataProvider loads historical candles from a source
type DataProvider interface {
	// LoadData loads historical data from the specified source
	LoadData(source string) ([]types.OHLCV, error)

	// ValidateData validates the integrity of the loaded data
	ValidateData(data []types.OHLCV) error

	// GetName returns the name of the data provider
	GetName() string
}

// DataCache caches loaded candles by source
type DataCache interface {
	Get(key string) ([]types.OHLCV, bool)
	Set(key string, data []types.OHLCV)
	Clear()
	Size() int
}

// DataFilter trims and checks candle sequences
type DataFilter interface {
	// FilterByPeriod keeps the trailing period ending at the last candle
	FilterByPeriod(data []types.OHLCV, period time.Duration) []types.OHLCV

	// FilterByDateRange keeps candles in [start, end]; zero bounds are open
	FilterByDateRange(data []types.OHLCV, start, end time.Time) []types.OHLCV

	// ValidateTimeSequence ensures timestamps strictly increase
	ValidateTimeSequence(data []types.OHLCV) error
}

// CSVColumnMapping defines the column positions of a CSV format. A negative
// column is absent; absent open, high and low default to the close.
type CSVColumnMapping struct {
	TimestampCol int
	OpenCol      int
	HighCol      int
	LowCol       int
	CloseCol     int
	VolumeCol    int
	MinColumns   int
	DateFormat   string
}

// Predefined CSV formats
var (
	DefaultCSVFormat = CSVColumnMapping{
		TimestampCol: 0,
		OpenCol:      1,
		HighCol:      2,
		LowCol:       3,
		CloseCol:     4,
		VolumeCol:    5,
		MinColumns:   6,
		DateFormat:   "2006-01-02 15:04:05",
	}

	// CloseOnlyCSVFormat reads "timestamp,close" files
	CloseOnlyCSVFormat = CSVColumnMapping{
		TimestampCol: 0,
		OpenCol:      -1,
		HighCol:      -1,
		LowCol:       -1,
		CloseCol:     1,
		VolumeCol:    -1,
		MinColumns:   2,
		DateFormat:   "2006-01-02",
	}
)
