package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is one of the three ledger currencies.
type Currency string

const (
	CurrencyEGP  Currency = "EGP"
	CurrencyTON  Currency = "TON"
	CurrencyUSDT Currency = "USDT"
)

// Currencies lists the ledger currencies in display order.
var Currencies = []Currency{CurrencyEGP, CurrencyTON, CurrencyUSDT}

// ParseCurrency normalizes a user supplied currency code.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case CurrencyEGP, CurrencyTON, CurrencyUSDT:
		return c, nil
	}
	return "", fmt.Errorf("unknown currency %q", s)
}

// Amounts holds one value per ledger currency.
type Amounts struct {
	EGP  decimal.Decimal `json:"egp"`
	TON  decimal.Decimal `json:"ton"`
	USDT decimal.Decimal `json:"usdt"`
}

// Single returns Amounts with only the given currency set.
func Single(c Currency, v decimal.Decimal) Amounts {
	var a Amounts
	a.set(c, v)
	return a
}

func (a Amounts) Get(c Currency) decimal.Decimal {
	switch c {
	case CurrencyEGP:
		return a.EGP
	case CurrencyTON:
		return a.TON
	case CurrencyUSDT:
		return a.USDT
	}
	return decimal.Zero
}

func (a *Amounts) set(c Currency, v decimal.Decimal) {
	switch c {
	case CurrencyEGP:
		a.EGP = v
	case CurrencyTON:
		a.TON = v
	case CurrencyUSDT:
		a.USDT = v
	}
}

func (a Amounts) Add(b Amounts) Amounts {
	return Amounts{
		EGP:  a.EGP.Add(b.EGP),
		TON:  a.TON.Add(b.TON),
		USDT: a.USDT.Add(b.USDT),
	}
}

func (a Amounts) IsZero() bool {
	return a.EGP.IsZero() && a.TON.IsZero() && a.USDT.IsZero()
}

// IsNegative reports whether any currency is below zero.
func (a Amounts) IsNegative() bool {
	return a.EGP.IsNegative() || a.TON.IsNegative() || a.USDT.IsNegative()
}
