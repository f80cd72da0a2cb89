package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/minhyannv/financial-analyst-go/pkg/chart"
	"github.com/minhyannv/financial-analyst-go/pkg/market"
)

type tickerArgs struct {
	Ticker string `json:"ticker" jsonschema_description:"Ticker symbol of the security, for example GOOG."`
}

func (a tickerArgs) ticker() (string, error) {
	ticker := strings.TrimSpace(a.Ticker)
	if ticker == "" {
		return "", errors.New("ticker is required")
	}
	return ticker, nil
}

type stockPriceTool struct {
	reg *Registry
}

func (t *stockPriceTool) kind() Kind { return KindGetStockPrice }

func (t *stockPriceTool) description() string {
	return "Get historical stock price data for a given ticker symbol."
}

func (t *stockPriceTool) arguments() any { return &tickerArgs{} }

func (t *stockPriceTool) execute(ctx context.Context, argText string) (string, error) {
	var args tickerArgs
	if err := decodeArgs(argText, &args); err != nil {
		return marshalToolResponse(t.kind().String(), nil, err)
	}
	ticker, err := args.ticker()
	if err != nil {
		return marshalToolResponse(t.kind().String(), nil, err)
	}
	return t.reg.FetchPriceSeries(ctx, ticker), nil
}

// FetchPriceSeries returns one year of daily history for ticker as text.
// Provider failures and empty histories are reported in the returned text.
func (r *Registry) FetchPriceSeries(ctx context.Context, ticker string) string {
	series, err := r.history(ctx, ticker)
	if err != nil {
		return fetchErrorMessage(ticker, err)
	}
	if series.Empty() {
		return market.NoDataMessage(ticker)
	}
	return market.FormatSeries(series)
}

type plotStockPriceTool struct {
	reg *Registry
}

func (t *plotStockPriceTool) kind() Kind { return KindPlotStockPrice }

func (t *plotStockPriceTool) description() string {
	return "Visualize stock price history for a given ticker symbol."
}

func (t *plotStockPriceTool) arguments() any { return &tickerArgs{} }

func (t *plotStockPriceTool) execute(ctx context.Context, argText string) (string, error) {
	var args tickerArgs
	if err := decodeArgs(argText, &args); err != nil {
		return marshalToolResponse(t.kind().String(), nil, err)
	}
	ticker, err := args.ticker()
	if err != nil {
		return marshalToolResponse(t.kind().String(), nil, err)
	}
	return t.reg.RenderPriceChart(ctx, ticker), nil
}

// RenderPriceChart fetches the history for ticker again and saves it as a
// line chart. The returned text names the chart file.
func (r *Registry) RenderPriceChart(ctx context.Context, ticker string) string {
	series, err := r.history(ctx, ticker)
	if err != nil {
		return fetchErrorMessage(ticker, err)
	}
	if series.Empty() {
		return noPlotDataMessage(ticker)
	}

	filename, err := r.ctx.Renderer.Render(ticker, series)
	if errors.Is(err, chart.ErrNoData) {
		return noPlotDataMessage(ticker)
	}
	if err != nil {
		r.ctx.Logger.Error("chart render failed", map[string]any{"ticker": ticker, "error": err.Error()})
		return fmt.Sprintf("Error rendering chart for ticker %s: %v", ticker, err)
	}
	r.ctx.Logger.Info("chart saved", map[string]any{"ticker": ticker, "file": filename, "dir": r.ctx.Renderer.Dir})
	return "Chart saved as " + filename
}

func (r *Registry) history(ctx context.Context, ticker string) (market.PriceSeries, error) {
	if r.ctx.Provider == nil {
		return market.PriceSeries{}, errors.New("no market data provider configured")
	}
	series, err := r.ctx.Provider.History(ctx, ticker)
	if err != nil {
		r.ctx.Logger.Warn("price history fetch failed", map[string]any{
			"ticker":   ticker,
			"provider": r.ctx.Provider.Name(),
			"error":    err.Error(),
		})
		return market.PriceSeries{}, err
	}
	r.ctx.debug("price history fetched", map[string]any{"ticker": ticker, "bars": len(series.Bars)})
	return series, nil
}

func fetchErrorMessage(ticker string, err error) string {
	return fmt.Sprintf("Error fetching data for ticker %s: %v", ticker, err)
}

func noPlotDataMessage(ticker string) string {
	return fmt.Sprintf("No data available to plot for ticker %s.", ticker)
}
