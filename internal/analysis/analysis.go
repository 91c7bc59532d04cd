package analysis

import (
	"errors"
	"fmt"
	"sort"
)

// IndicatorSet holds the computed indicators for one symbol. Fields that
// could not be computed from the available series are nil (or empty for
// Trend) and listed in Missing.
type IndicatorSet struct {
	MovingAverages map[int]float64 `json:"moving_averages,omitempty"` // period -> latest value
	RSI            *float64        `json:"rsi,omitempty"`
	MACD           *MACDResult     `json:"macd,omitempty"`
	Trend          Trend           `json:"trend,omitempty"`
	Missing        []string        `json:"missing,omitempty"`
}

// Config tunes indicator computation for Compute.
type Config struct {
	TrendConfig
	RSIPeriod  int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
	MAPeriods  []int
}

// DefaultConfig returns the standard indicator parameters.
func DefaultConfig() Config {
	return Config{
		TrendConfig: DefaultTrendConfig(),
		RSIPeriod:   DefaultRSIPeriod,
		MACDFast:    DefaultMACDFast,
		MACDSlow:    DefaultMACDSlow,
		MACDSignal:  DefaultMACDSignal,
		MAPeriods:   []int{20, 50},
	}
}

// Compute evaluates all configured indicators over a close-price series.
// Indicators the series is too short for are degraded to missing fields
// rather than failing the whole set; any other error aborts.
func Compute(prices []float64, cfg Config) (*IndicatorSet, error) {
	if len(prices) == 0 {
		return nil, insufficientData("indicators", 1, 0)
	}

	set := &IndicatorSet{
		MovingAverages: make(map[int]float64),
	}

	degrade := func(name string, err error) error {
		var ins *InsufficientDataError
		if errors.As(err, &ins) {
			set.Missing = append(set.Missing, name)
			return nil
		}
		return err
	}

	periods := append([]int(nil), cfg.MAPeriods...)
	sort.Ints(periods)
	for _, period := range periods {
		ma, err := MovingAverage(prices, period)
		if err != nil {
			if err = degrade(fmt.Sprintf("moving_average_%d", period), err); err != nil {
				return nil, err
			}
			continue
		}
		set.MovingAverages[period] = ma[len(ma)-1]
	}

	rsi, err := RSI(prices, cfg.RSIPeriod)
	if err != nil {
		if err = degrade("rsi", err); err != nil {
			return nil, err
		}
	} else {
		set.RSI = &rsi
	}

	macd, err := MACD(prices, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	if err != nil {
		if err = degrade("macd", err); err != nil {
			return nil, err
		}
	} else {
		set.MACD = macd
	}

	trend, err := ClassifyTrend(prices, cfg.TrendConfig)
	if err != nil {
		if err = degrade("trend", err); err != nil {
			return nil, err
		}
	} else {
		set.Trend = trend
	}

	return set, nil
}
