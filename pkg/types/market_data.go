package types

import "time"

type OHLCV struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp time.Time
}

// CloseSeries extracts the close prices of the candles as a price series
func CloseSeries(data []OHLCV) Series {
	index := make([]time.Time, len(data))
	values := make([]float64, len(data))
	for i, c := range data {
		index[i] = c.Timestamp
		values[i] = c.Close
	}
	return Series{Index: index, Values: values}
}
