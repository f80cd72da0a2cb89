package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	loggerpkg "github.com/minhyannv/financial-analyst-go/pkg/logger"
	"golang.org/x/time/rate"
)

const (
	DefaultYahooBaseURL = "https://query1.finance.yahoo.com"
	historyInterval     = "1d"
	historyRange        = "1y"
)

// YahooOptions configures a YahooClient.
type YahooOptions struct {
	BaseURL        string
	RequestTimeout time.Duration
	RequestsPerSec float64
	HTTPClient     *http.Client
	Logger         loggerpkg.Logger
	Verbose        bool
}

// YahooClient implements Provider using the Yahoo Finance chart API.
type YahooClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  loggerpkg.Logger
	verbose bool
}

// NewYahooClient creates a Yahoo Finance client. Outbound calls are rate
// limited but never retried.
func NewYahooClient(opts YahooOptions) *YahooClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultYahooBaseURL
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = 2
	}
	if opts.Logger == nil {
		opts.Logger = loggerpkg.NopLogger{}
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.RequestTimeout}
	}
	return &YahooClient{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  httpClient,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSec), 1),
		logger:  opts.Logger,
		verbose: opts.Verbose,
	}
}

func (c *YahooClient) Name() string { return "yahoo" }

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// History fetches one year of daily bars. Unknown or delisted symbols yield an
// empty series rather than an error.
func (c *YahooClient) History(ctx context.Context, ticker string) (PriceSeries, error) {
	series := PriceSeries{Ticker: ticker}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return series, fmt.Errorf("yahoo rate limit: %w", err)
	}

	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		c.baseURL, url.PathEscape(ticker), historyInterval, historyRange)
	loggerpkg.Debug(c.verbose, c.logger, "yahoo request", map[string]any{"ticker": ticker, "url": u})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return series, fmt.Errorf("yahoo request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return series, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return series, fmt.Errorf("yahoo read body: %w", err)
	}

	var chart yahooChart
	decodeErr := json.Unmarshal(body, &chart)
	if decodeErr == nil && chart.Chart.Error != nil {
		if strings.EqualFold(chart.Chart.Error.Code, "Not Found") {
			loggerpkg.Debug(c.verbose, c.logger, "yahoo symbol not found", map[string]any{"ticker": ticker})
			return series, nil
		}
		return series, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return series, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, truncate(string(body), 200))
	}
	if decodeErr != nil {
		return series, fmt.Errorf("yahoo decode: %w", decodeErr)
	}

	series.Bars = barsFromChart(chart)
	loggerpkg.Debug(c.verbose, c.logger, "yahoo history fetched", map[string]any{"ticker": ticker, "bars": len(series.Bars)})
	return series, nil
}

func barsFromChart(chart yahooChart) []Bar {
	if len(chart.Chart.Result) == 0 {
		return nil
	}
	result := chart.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil
	}
	quote := result.Indicators.Quote[0]

	bars := make([]Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		c := valueAt(quote.Close, i)
		if c == nil {
			continue // null bar
		}
		bars = append(bars, Bar{
			Date:   time.Unix(ts, 0).UTC(),
			Open:   deref(valueAt(quote.Open, i)),
			High:   deref(valueAt(quote.High, i)),
			Low:    deref(valueAt(quote.Low, i)),
			Close:  *c,
			Volume: deref(valueAt(quote.Volume, i)),
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars
}

func valueAt(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
