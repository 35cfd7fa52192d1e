package model

import "encoding/json"

// IndicatorSet holds the technical indicators of one coin. A nil field means
// the price series was too short for that indicator.
type IndicatorSet struct {
	RSI     *float64
	SMA7    *float64
	SMA20   *float64
	EMA12   *float64
	EMA26   *float64
	High30d *float64
	Low30d  *float64
}

// CoinRecord is the per-coin entry of a MarketReport. Error is set only when
// the coin could not be fetched, in which case every other field is empty.
type CoinRecord struct {
	Symbol     string
	Snapshot   MarketSnapshot
	Indicators IndicatorSet
	Signal     string
	Error      string
}

// Failed reports whether the record carries an error instead of indicators.
func (r CoinRecord) Failed() bool { return r.Error != "" }

type coinRecordJSON struct {
	Symbol         string   `json:"symbol"`
	CurrentPrice   *float64 `json:"current_price"`
	PriceChange24h *float64 `json:"price_change_24h"`
	Volume24h      *float64 `json:"volume_24h"`
	High30d        *float64 `json:"high_30d"`
	Low30d         *float64 `json:"low_30d"`
	RSI            *float64 `json:"rsi"`
	SMA7           *float64 `json:"sma7"`
	SMA20          *float64 `json:"sma20"`
	EMA12          *float64 `json:"ema12"`
	EMA26          *float64 `json:"ema26"`
	Signal         string   `json:"signal"`
}

type coinErrorJSON struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// MarshalJSON emits {symbol, error} for failed records and the full
// indicator shape otherwise, with null for unavailable values.
func (r CoinRecord) MarshalJSON() ([]byte, error) {
	if r.Failed() {
		return json.Marshal(coinErrorJSON{Symbol: r.Symbol, Error: r.Error})
	}
	return json.Marshal(coinRecordJSON{
		Symbol:         r.Symbol,
		CurrentPrice:   r.Snapshot.CurrentPrice,
		PriceChange24h: r.Snapshot.PriceChange24h,
		Volume24h:      r.Snapshot.Volume24h,
		High30d:        r.Indicators.High30d,
		Low30d:         r.Indicators.Low30d,
		RSI:            r.Indicators.RSI,
		SMA7:           r.Indicators.SMA7,
		SMA20:          r.Indicators.SMA20,
		EMA12:          r.Indicators.EMA12,
		EMA26:          r.Indicators.EMA26,
		Signal:         r.Signal,
	})
}

// UnmarshalJSON accepts either shape written by MarshalJSON.
func (r *CoinRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		coinRecordJSON
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = CoinRecord{
		Symbol: raw.Symbol,
		Snapshot: MarketSnapshot{
			CurrentPrice:   raw.CurrentPrice,
			PriceChange24h: raw.PriceChange24h,
			Volume24h:      raw.Volume24h,
		},
		Indicators: IndicatorSet{
			RSI:     raw.RSI,
			SMA7:    raw.SMA7,
			SMA20:   raw.SMA20,
			EMA12:   raw.EMA12,
			EMA26:   raw.EMA26,
			High30d: raw.High30d,
			Low30d:  raw.Low30d,
		},
		Signal: raw.Signal,
		Error:  raw.Error,
	}
	return nil
}

// MarketReport is the dated output of one collection run.
type MarketReport struct {
	Date  string       `json:"date"`
	Coins []CoinRecord `json:"coins"`
}

// Failures counts the records that carry an error.
func (m *MarketReport) Failures() int {
	n := 0
	for _, c := range m.Coins {
		if c.Failed() {
			n++
		}
	}
	return n
}
