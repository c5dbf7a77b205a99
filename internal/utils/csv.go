package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"cryptoSignalBot/internal/domain"
)

// ErrMissingColumn is returned when a candle CSV lacks a required column.
var ErrMissingColumn = errors.New("candle csv is missing a required column")

var candleHeader = []string{"open_time", "product", "open", "high", "low", "close", "volume"}

// WriteCandlesToCSV writes candles for product to filename, creating parent directories.
func WriteCandlesToCSV(candles []domain.Candle, product, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(candleHeader); err != nil {
		return err
	}
	for _, c := range candles {
		err := writer.Write([]string{
			c.Timestamp.UTC().Format(time.RFC3339),
			product,
			strconv.FormatFloat(c.Open, 'f', -1, 64),
			strconv.FormatFloat(c.High, 'f', -1, 64),
			strconv.FormatFloat(c.Low, 'f', -1, 64),
			strconv.FormatFloat(c.Close, 'f', -1, 64),
			strconv.FormatFloat(c.Volume, 'f', -1, 64),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadCandlesFromCSV reads candles from filename. Columns are located by header name,
// so files with extra columns (close_time, interval, symbol) are accepted.
func ReadCandlesFromCSV(filename string) ([]domain.Candle, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadCandles(file)
}

// ReadCandles parses candle CSV from r.
func ReadCandles(r io.Reader) ([]domain.Candle, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	idx := make(map[string]int, 6)
	for _, name := range []string{"open_time", "open", "high", "low", "close", "volume"} {
		i, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		idx[name] = i
	}

	var candles []domain.Candle
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		ts, err := time.Parse(time.RFC3339, record[idx["open_time"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: open_time: %w", line, err)
		}
		var vals [5]float64
		for i, name := range []string{"open", "high", "low", "close", "volume"} {
			v, err := strconv.ParseFloat(record[idx[name]], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, name, err)
			}
			vals[i] = v
		}
		candles = append(candles, domain.Candle{
			Timestamp: ts.UTC(),
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    vals[4],
		})
	}
	return candles, nil
}
