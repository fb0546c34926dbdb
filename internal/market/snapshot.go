package market

import "time"

// SourceScore is one sentiment source's contribution for a symbol.
// Score is in [-1, 1]; Count is the number of messages behind it.
type SourceScore struct {
	Score     float64   `json:"score"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// MarketSnapshot is the immutable per-cycle view of a symbol that the
// decision pipeline consumes. Built once per tick, never mutated.
type MarketSnapshot struct {
	Symbol     string                 `json:"symbol"`
	Price      float64                `json:"price"`
	Sentiment  map[string]SourceScore `json:"sentiment"`
	Technicals map[string]float64     `json:"technicals"`
	Volatility float64                `json:"volatility"`
	Timestamp  time.Time              `json:"timestamp"`
}

// SentimentAverage returns the unweighted mean score across sources,
// or 0 when no sources are present. Iteration order does not affect
// the result.
func (s *MarketSnapshot) SentimentAverage() float64 {
	if len(s.Sentiment) == 0 {
		return 0
	}
	var sum float64
	for _, src := range s.Sentiment {
		sum += src.Score
	}
	return sum / float64(len(s.Sentiment))
}
