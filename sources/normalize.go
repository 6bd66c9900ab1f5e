package sources

import (
	"strings"
	"time"

	"github.com/use-agent/nepse/models"
)

// Normalizer maps one raw row onto a typed record. Normalizers are total:
// a short or malformed row yields empty fields, never an error.
type Normalizer func(row models.RawRow, capturedAt time.Time) models.Record

// Column positions per source table.
const (
	tpSN = iota
	tpSymbol
	tpLTP
	tpChange
	tpPercentChange
	tpOpen
	tpHigh
	tpLow
	tpVolume
	tpPreviousClose
)

const (
	ltSymbol        = 1
	ltLTP           = 2
	ltChange        = 3
	ltPercentChange = 4
	ltHigh          = 6
	ltLow           = 7
	ltVolume        = 8
)

const (
	tgSymbol        = 1
	tgLTP           = 2
	tgChange        = 3
	tgPercentChange = 4
)

const (
	fsPageSN = iota
	fsContractNo
	fsSymbol
	fsBuyer
	fsSeller
	fsQuantity
	fsRate
	fsAmount
)

func cell(row models.RawRow, i int) string {
	return strings.TrimSpace(row.Cell(i))
}

func normalizeTodaysPrice(row models.RawRow, at time.Time) models.Record {
	return models.TodaysPrice{
		SN:            cell(row, tpSN),
		Symbol:        cell(row, tpSymbol),
		LTP:           cell(row, tpLTP),
		Change:        cell(row, tpChange),
		PercentChange: cell(row, tpPercentChange),
		Open:          cell(row, tpOpen),
		High:          cell(row, tpHigh),
		Low:           cell(row, tpLow),
		Volume:        cell(row, tpVolume),
		PreviousClose: cell(row, tpPreviousClose),
		Timestamp:     at,
	}
}

func normalizeLiveTrading(row models.RawRow, at time.Time) models.Record {
	return models.LiveTrading{
		Symbol:        cell(row, ltSymbol),
		LTP:           cell(row, ltLTP),
		Change:        cell(row, ltChange),
		PercentChange: cell(row, ltPercentChange),
		Volume:        cell(row, ltVolume),
		High:          cell(row, ltHigh),
		Low:           cell(row, ltLow),
		Timestamp:     at,
	}
}

func normalizeTopGainer(row models.RawRow, at time.Time) models.Record {
	return models.TopGainer{
		Symbol:        cell(row, tgSymbol),
		LTP:           cell(row, tgLTP),
		Change:        cell(row, tgChange),
		PercentChange: cell(row, tgPercentChange),
		Timestamp:     at,
	}
}

func normalizeFloorSheet(row models.RawRow, at time.Time) models.Record {
	return models.FloorSheet{
		PageSN:         cell(row, fsPageSN),
		ContractNo:     cell(row, fsContractNo),
		Symbol:         cell(row, fsSymbol),
		BuyerMemberID:  cell(row, fsBuyer),
		SellerMemberID: cell(row, fsSeller),
		Quantity:       cell(row, fsQuantity),
		Rate:           cell(row, fsRate),
		Amount:         cell(row, fsAmount),
		Timestamp:      at,
	}
}
