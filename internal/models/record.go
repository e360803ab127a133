package models

import (
	"errors"
	"time"
)

// Ledger names the balance under management: loyalty points on customer
// accounts, or units on stock items.
type Ledger string

const (
	LedgerPoints Ledger = "points"
	LedgerStock  Ledger = "stock"
)

var ErrUnknownLedger = errors.New("unknown ledger")

func ParseLedger(s string) (Ledger, error) {
	switch Ledger(s) {
	case LedgerPoints, LedgerStock:
		return Ledger(s), nil
	}
	return "", ErrUnknownLedger
}

// Record is one server-owned row of a ledger. Balance is never negative.
type Record struct {
	ID        int64     `json:"id"`
	Ledger    Ledger    `json:"ledger"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Balance   int64     `json:"balance"`
	Eligible  bool      `json:"eligible"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecordPage is the wire shape of a paginated listing.
type RecordPage struct {
	Count   int      `json:"count"`
	Results []Record `json:"results"`
}
