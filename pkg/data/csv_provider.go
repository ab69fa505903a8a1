package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/swarm-backtester/pkg/types"
)

// fallbackDateFormats are tried after the configured format
var fallbackDateFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// CSVProvider implements DataProvider for CSV files
type CSVProvider struct {
	format CSVColumnMapping
	log    zerolog.Logger
}

// NewCSVProvider creates a CSV provider with the default format
func NewCSVProvider(log zerolog.Logger) *CSVProvider {
	return NewCSVProviderWithFormat(DefaultCSVFormat, log)
}

// NewCSVProviderWithFormat creates a CSV provider with a custom format
func NewCSVProviderWithFormat(format CSVColumnMapping, log zerolog.Logger) *CSVProvider {
	return &CSVProvider{format: format, log: log}
}

// GetName returns the name of the data provider
func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// LoadData loads candles from a CSV file with a header row. Malformed rows
// are logged and skipped.
func (p *CSVProvider) LoadData(source string) ([]types.OHLCV, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer file.Close()

	return p.Read(file)
}

// Read parses candles from r
func (p *CSVProvider) Read(r io.Reader) ([]types.OHLCV, error) {
	format := p.format
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	// Skip header
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}

	var data []types.OHLCV
	lineNum := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error reading CSV at line %d: %w", lineNum, err)
		}
		lineNum++

		if len(record) < format.MinColumns {
			p.log.Warn().Int("line", lineNum).Int("expected", format.MinColumns).Int("got", len(record)).
				Msg("insufficient columns, skipping")
			continue
		}

		timestamp, err := parseTimestamp(record[format.TimestampCol], format.DateFormat)
		if err != nil {
			p.log.Warn().Int("line", lineNum).Str("value", record[format.TimestampCol]).Msg("invalid timestamp, skipping")
			continue
		}

		candle, err := parseCandle(record, format)
		if err != nil {
			p.log.Warn().Int("line", lineNum).Err(err).Msg("invalid price row, skipping")
			continue
		}
		candle.Timestamp = timestamp
		data = append(data, candle)
	}

	return data, nil
}

func parseCandle(record []string, format CSVColumnMapping) (types.OHLCV, error) {
	field := func(col int, name string) (float64, bool, error) {
		if col < 0 || col >= len(record) {
			return 0, false, nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
		if err != nil {
			return 0, false, fmt.Errorf("invalid %s %q", name, record[col])
		}
		return v, true, nil
	}

	closePrice, ok, err := field(format.CloseCol, "close")
	if err != nil {
		return types.OHLCV{}, err
	}
	if !ok {
		return types.OHLCV{}, fmt.Errorf("missing close column")
	}

	c := types.OHLCV{Open: closePrice, High: closePrice, Low: closePrice, Close: closePrice}
	if v, ok, err := field(format.OpenCol, "open"); err != nil {
		return types.OHLCV{}, err
	} else if ok {
		c.Open = v
	}
	if v, ok, err := field(format.HighCol, "high"); err != nil {
		return types.OHLCV{}, err
	} else if ok {
		c.High = v
	}
	if v, ok, err := field(format.LowCol, "low"); err != nil {
		return types.OHLCV{}, err
	} else if ok {
		c.Low = v
	}
	if v, ok, err := field(format.VolumeCol, "volume"); err != nil {
		return types.OHLCV{}, err
	} else if ok {
		c.Volume = v
	}

	if err := validateCandle(c); err != nil {
		return types.OHLCV{}, err
	}
	return c, nil
}

func parseTimestamp(s, layout string) (time.Time, error) {
	s = strings.TrimSpace(s)
	layouts := fallbackDateFormats
	if layout != "" {
		layouts = append([]string{layout}, fallbackDateFormats...)
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	// Unix seconds or milliseconds
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func validateCandle(c types.OHLCV) error {
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return fmt.Errorf("prices must be positive")
	}
	if c.High < c.Low {
		return fmt.Errorf("high (%.4f) cannot be less than low (%.4f)", c.High, c.Low)
	}
	if c.High < c.Open || c.High < c.Close {
		return fmt.Errorf("high (%.4f) must be >= open (%.4f) and close (%.4f)", c.High, c.Open, c.Close)
	}
	if c.Low > c.Open || c.Low > c.Close {
		return fmt.Errorf("low (%.4f) must be <= open (%.4f) and close (%.4f)", c.Low, c.Open, c.Close)
	}
	return nil
}

// ValidateData validates the integrity of loaded data
func (p *CSVProvider) ValidateData(data []types.OHLCV) error {
	if len(data) == 0 {
		return fmt.Errorf("no data provided")
	}
	for i, candle := range data {
		if err := validateCandle(candle); err != nil {
			return fmt.Errorf("invalid price data at index %d: %w", i, err)
		}
		if i > 0 && !candle.Timestamp.After(data[i-1].Timestamp) {
			return fmt.Errorf("invalid timestamp sequence at index %d: timestamps must strictly increase", i)
		}
	}
	return nil
}

// GenerateSampleData returns n daily candles of a seeded random walk
func GenerateSampleData(n int, seed int64, start time.Time) []types.OHLCV {
	rng := rand.New(rand.NewSource(seed))
	data := make([]types.OHLCV, n)
	price := 100.0
	for i := range data {
		open := price
		price *= 1 + rng.NormFloat64()*0.01
		if price < 1 {
			price = 1
		}
		high := open
		if price > high {
			high = price
		}
		low := open
		if price < low {
			low = price
		}
		data[i] = types.OHLCV{
			Timestamp: start.AddDate(0, 0, i),
			Open:      open,
			High:      high * (1 + rng.Float64()*0.005),
			Low:       low * (1 - rng.Float64()*0.005),
			Close:     price,
			Volume:    rng.Float64() * 1000,
		}
	}
	return data
}
