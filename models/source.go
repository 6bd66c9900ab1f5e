package models

import (
	"fmt"
	"strings"
)

// Source identifies one of the market data feeds.
type Source string

const (
	SourceTodaysPrice Source = "todays-price"
	SourceLiveTrading Source = "live-trading"
	SourceTopGainers  Source = "top-gainers"
	SourceFloorSheet  Source = "floor-sheet"
)

// Sources lists every known feed in a stable order.
var Sources = []Source{
	SourceTodaysPrice,
	SourceLiveTrading,
	SourceTopGainers,
	SourceFloorSheet,
}

// ParseSource resolves a slug such as "floor-sheet" (case-insensitive).
func ParseSource(s string) (Source, error) {
	want := Source(strings.ToLower(strings.TrimSpace(s)))
	for _, src := range Sources {
		if src == want {
			return src, nil
		}
	}
	return "", fmt.Errorf("unknown source %q", s)
}

func (s Source) String() string { return string(s) }
