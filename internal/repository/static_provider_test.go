package repository

import (
	"context"
	"testing"
	"time"
)

func TestStaticProviderParsesEmbeddedSnapshot(t *testing.T) {
	p, err := NewStaticProvider()
	if err != nil {
		t.Fatalf("embedded snapshot failed to parse: %v", err)
	}
	if len(p.byTicker) == 0 {
		t.Fatal("embedded snapshot has no tickers")
	}
	for ticker, obs := range p.byTicker {
		for _, o := range obs {
			if !o.Valid() {
				t.Fatalf("embedded bar invalid: %s %s", ticker, o.Date.Format("2006-01-02"))
			}
		}
	}
}

func TestStaticProviderFiltersByRange(t *testing.T) {
	const data = `ticker,date,open,high,low,close,volume
AAPL,2026-07-01,100,102,99,101,1000
AAPL,2026-07-02,101,103,100,102,1100
AAPL,2026-07-03,102,104,101,103,1200
MSFT,2026-07-01,300,305,298,302,900
`
	p, err := newStaticProviderFrom(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	start := time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 7, 3, 0, 0, 0, 0, time.UTC)
	obs, err := p.Fetch(context.Background(), "AAPL", start, end)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("got %d bars", len(obs))
	}
	if obs[0].Date.Before(start) || obs[1].Date.After(end) {
		t.Fatalf("range not respected: %s .. %s", obs[0].Date, obs[1].Date)
	}

	none, err := p.Fetch(context.Background(), "TSLA", start, end)
	if err != nil {
		t.Fatalf("fetch unknown ticker: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("unknown ticker returned %d bars", len(none))
	}
}

func TestStaticProviderRejectsMalformedCSV(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"empty", "ticker,date,open,high,low,close,volume\n"},
		{"bad date", "ticker,date,open,high,low,close,volume\nAAPL,july,1,2,3,4,5\n"},
		{"bad price", "ticker,date,open,high,low,close,volume\nAAPL,2026-07-01,x,2,3,4,5\n"},
	}
	for _, tc := range cases {
		if _, err := newStaticProviderFrom(tc.data); err == nil {
			t.Fatalf("%s accepted", tc.name)
		}
	}
}
