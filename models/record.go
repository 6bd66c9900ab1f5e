package models

import "time"

// RawRow is the ordered cell text of one table row. Positions are
// meaningful per source; a cell missing from the DOM is an empty string.
type RawRow []string

// Cell returns the i-th cell, or "" when the row is too short.
func (r RawRow) Cell(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// Record is one normalized table row.
type Record interface {
	// CapturedAt is the wall-clock time the row was normalized.
	CapturedAt() time.Time
}

// TodaysPrice is a row of the end-of-day price table.
type TodaysPrice struct {
	SN            string    `json:"sn"`
	Symbol        string    `json:"symbol"`
	LTP           string    `json:"ltp"`
	Change        string    `json:"change"`
	PercentChange string    `json:"percentChange"`
	Open          string    `json:"open"`
	High          string    `json:"high"`
	Low           string    `json:"low"`
	Volume        string    `json:"volume"`
	PreviousClose string    `json:"previousClose"`
	Timestamp     time.Time `json:"timestamp"`
}

func (r TodaysPrice) CapturedAt() time.Time { return r.Timestamp }

// LiveTrading is a row of the live market table.
type LiveTrading struct {
	Symbol        string    `json:"symbol"`
	LTP           string    `json:"ltp"`
	Change        string    `json:"change"`
	PercentChange string    `json:"percentChange"`
	Volume        string    `json:"volume"`
	High          string    `json:"high"`
	Low           string    `json:"low"`
	Timestamp     time.Time `json:"timestamp"`
}

func (r LiveTrading) CapturedAt() time.Time { return r.Timestamp }

// TopGainer is a row of the top gainers table.
type TopGainer struct {
	Symbol        string    `json:"symbol"`
	LTP           string    `json:"ltp"`
	Change        string    `json:"change"`
	PercentChange string    `json:"percentChange"`
	Timestamp     time.Time `json:"timestamp"`
}

func (r TopGainer) CapturedAt() time.Time { return r.Timestamp }

// FloorSheet is a single executed contract from the floor sheet.
type FloorSheet struct {
	PageSN         string    `json:"pageSn"`
	ContractNo     string    `json:"contractNo"`
	Symbol         string    `json:"symbol"`
	BuyerMemberID  string    `json:"buyerMemberId"`
	SellerMemberID string    `json:"sellerMemberId"`
	Quantity       string    `json:"quantity"`
	Rate           string    `json:"rate"`
	Amount         string    `json:"amount"`
	Timestamp      time.Time `json:"timestamp"`
}

func (r FloorSheet) CapturedAt() time.Time { return r.Timestamp }
