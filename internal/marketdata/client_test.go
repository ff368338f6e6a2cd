package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/simbroker/simbroker/internal/domain"
)

func TestChartsBatchesTickersIntoOneRequest(t *testing.T) {
	var gotSymbols, gotRange, gotInterval, gotKey string
	calls := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		gotSymbols = r.URL.Query().Get("symbols")
		gotRange = r.URL.Query().Get("range")
		gotInterval = r.URL.Query().Get("interval")
		gotKey = r.Header.Get("X-Api-Key")
		w.Write([]byte(`{
			"SAP": {"closes": [101.5, null, 102.25]},
			"BMW": {"closes": [88.0]}
		}`))
	}))
	defer srv.Close()

	client := New(srv.URL, "secret-key")
	charts, err := client.Charts(context.Background(), []string{"SAP", "BMW", "VOW3"}, "1d", "5m")
	if err != nil {
		t.Fatalf("Charts: %v", err)
	}

	if calls != 1 {
		t.Errorf("expected exactly one request, got %d", calls)
	}
	if gotSymbols != "SAP,BMW,VOW3" {
		t.Errorf("symbols = %q, want %q", gotSymbols, "SAP,BMW,VOW3")
	}
	if gotRange != "1d" || gotInterval != "5m" {
		t.Errorf("range/interval = %q/%q, want 1d/5m", gotRange, gotInterval)
	}
	if gotKey != "secret-key" {
		t.Errorf("api key header = %q", gotKey)
	}

	sap, ok := charts["SAP"]
	if !ok {
		t.Fatal("SAP missing from response")
	}
	if len(sap.Closes) != 3 {
		t.Fatalf("SAP closes = %d samples, want 3", len(sap.Closes))
	}
	if sap.Closes[1] != nil {
		t.Error("null close should stay nil")
	}
	if sap.Closes[2] == nil || *sap.Closes[2] != 102.25 {
		t.Errorf("SAP closes[2] = %v, want 102.25", sap.Closes[2])
	}

	// VOW3 was requested but not returned; that is the provider's call.
	if _, ok := charts["VOW3"]; ok {
		t.Error("VOW3 should be absent")
	}
}

func TestChartsEmptyTickerList(t *testing.T) {
	client := New("http://unreachable.invalid", "")
	charts, err := client.Charts(context.Background(), nil, "1d", "5m")
	if err != nil {
		t.Fatalf("Charts with no tickers: %v", err)
	}
	if len(charts) != 0 {
		t.Errorf("expected empty result, got %d entries", len(charts))
	}
}

func TestChartsServerErrorIsProviderUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(srv.URL, "")
	_, err := client.Charts(context.Background(), []string{"SAP"}, "1d", "5m")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Errorf("err = %v, want ErrProviderUnavailable", err)
	}
}

func TestChartsRateLimitIsProviderUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := New(srv.URL, "")
	_, err := client.Charts(context.Background(), []string{"SAP"}, "1d", "5m")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Errorf("err = %v, want ErrProviderUnavailable", err)
	}
}

func TestChartsGarbageBodyIsMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	client := New(srv.URL, "")
	_, err := client.Charts(context.Background(), []string{"SAP"}, "1d", "5m")
	if !errors.Is(err, domain.ErrMalformedResponse) {
		t.Errorf("err = %v, want ErrMalformedResponse", err)
	}
}
