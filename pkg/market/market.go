// Package market fetches daily price history for ticker symbols.
package market

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"
)

// Bar is one daily OHLCV record.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries holds the trailing one-year daily bars for a ticker, oldest first.
type PriceSeries struct {
	Ticker string
	Bars   []Bar
}

// Empty reports whether the provider returned no rows.
func (s PriceSeries) Empty() bool {
	return len(s.Bars) == 0
}

// Provider fetches price history from an external market data service.
type Provider interface {
	History(ctx context.Context, ticker string) (PriceSeries, error)
	Name() string
}

// NoDataMessage is the text returned to the model when a ticker has no history.
func NoDataMessage(ticker string) string {
	return fmt.Sprintf("No data found for ticker %s.", ticker)
}

// FormatSeries renders the series as an aligned text table.
func FormatSeries(series PriceSeries) string {
	if series.Empty() {
		return NoDataMessage(series.Ticker)
	}

	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', tabwriter.AlignRight)
	_, _ = fmt.Fprintln(w, "Date\tOpen\tHigh\tLow\tClose\tVolume\t")
	for _, bar := range series.Bars {
		_, _ = fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.0f\t\n",
			bar.Date.Format("2006-01-02"), bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	}
	_ = w.Flush()
	return strings.TrimRight(sb.String(), "\n")
}
