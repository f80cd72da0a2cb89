package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const goodChart = `{"chart":{"result":[{"timestamp":[1700092800,1700006400,1700179200],
"indicators":{"quote":[{"open":[101.0,100.0,null],"high":[103.0,102.0,null],
"low":[99.5,98.0,null],"close":[102.5,101.0,null],"volume":[2000,1000,null]}]}}],"error":null}}`

const notFoundChart = `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *YahooClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewYahooClient(YahooOptions{BaseURL: srv.URL, RequestsPerSec: 100})
}

func TestYahooHistoryParsesBars(t *testing.T) {
	var gotPath, gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(goodChart))
	})

	series, err := client.History(context.Background(), "GOOG")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if gotPath != "/v8/finance/chart/GOOG" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if !strings.Contains(gotQuery, "range=1y") || !strings.Contains(gotQuery, "interval=1d") {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if series.Ticker != "GOOG" {
		t.Fatalf("expected ticker GOOG, got %q", series.Ticker)
	}
	if len(series.Bars) != 2 {
		t.Fatalf("expected 2 bars (null bar skipped), got %d", len(series.Bars))
	}
	if !series.Bars[0].Date.Before(series.Bars[1].Date) {
		t.Fatal("expected bars sorted oldest first")
	}
	if series.Bars[0].Close != 101.0 || series.Bars[1].Volume != 2000 {
		t.Fatalf("unexpected bar values: %+v", series.Bars)
	}
}

func TestYahooHistoryNotFoundIsEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(notFoundChart))
	})

	series, err := client.History(context.Background(), "ZZZZINVALID")
	if err != nil {
		t.Fatalf("expected no error for unknown symbol, got %v", err)
	}
	if !series.Empty() {
		t.Fatalf("expected empty series, got %d bars", len(series.Bars))
	}
}

func TestYahooHistoryServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	_, err := client.History(context.Background(), "GOOG")
	if err == nil {
		t.Fatal("expected error for 502 response")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestYahooHistoryCanceledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(goodChart))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.History(ctx, "GOOG"); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestFormatSeries(t *testing.T) {
	series := PriceSeries{
		Ticker: "GOOG",
		Bars: []Bar{
			{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
		},
	}
	out := FormatSeries(series)
	for _, want := range []string{"Date", "Close", "Volume", "2024-01-02", "1.50", "100"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	if got := FormatSeries(PriceSeries{Ticker: "ZZZZINVALID"}); got != "No data found for ticker ZZZZINVALID." {
		t.Fatalf("unexpected empty output %q", got)
	}
}
