package market

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// CSVProvider serves histories from local CSV files, one file per
// symbol, named <SYMBOL>.csv with header time,open,high,low,close.
// Used by the CLI and tests; production deployments inject a vendor
// provider instead.
type CSVProvider struct {
	dir string
}

func NewCSVProvider(dir string) *CSVProvider {
	return &CSVProvider{dir: dir}
}

// History loads and parses the symbol's file. The period argument is
// ignored; the file's full range is returned.
func (p *CSVProvider) History(ctx context.Context, symbol string, period string) ([]PricePoint, error) {
	path := filepath.Join(p.dir, strings.ToUpper(symbol)+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: malformed csv %s: %v", ErrDataUnavailable, path, err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	bars := make([]PricePoint, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) < 5 {
			continue
		}
		t, err := time.Parse("2006-01-02", rec[0])
		if err != nil {
			return nil, fmt.Errorf("%w: bad date on row %d: %v", ErrDataUnavailable, i+2, err)
		}
		vals := make([]float64, 4)
		ok := true
		for j := 0; j < 4; j++ {
			v, err := strconv.ParseFloat(rec[j+1], 64)
			if err != nil {
				ok = false
				break
			}
			vals[j] = v
		}
		if !ok {
			continue
		}
		bars = append(bars, PricePoint{Time: t, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3]})
	}
	return bars, nil
}

// Quote returns the last close in the symbol's file.
func (p *CSVProvider) Quote(ctx context.Context, symbol string) (float64, error) {
	bars, err := p.History(ctx, symbol, "")
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("%w: no rows for %s", ErrDataUnavailable, symbol)
	}
	return bars[len(bars)-1].Close, nil
}
