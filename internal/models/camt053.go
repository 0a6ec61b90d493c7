// Package models provides the data structures used throughout the application.
package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Document is one decoded camt.053 archive member.
type Document struct {
	GrpHdr GroupHeader
	Stmts  []Statement
}

// GroupHeader describes the message batch.
type GroupHeader struct {
	MsgID     string
	CreDtTm   string
	PgNb      int
	LastPgInd bool
}

// Statement is one account statement with its balances in document order.
type Statement struct {
	ElctrncSeqNb string
	IBAN         string
	CreDtTm      string
	FrDtTm       string
	ToDtTm       string
	Balances     []Balance
}

// Balance is one statement balance. Amt is kept exactly as written in the document.
type Balance struct {
	Cd        string
	Amt       string
	Ccy       string
	Dt        string
	CdtDbtInd string
}

// Decimal parses the balance amount. Surrounding whitespace is ignored; Amt itself
// is kept as written.
func (b Balance) Decimal() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(b.Amt))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", b.Amt, err)
	}
	return d, nil
}

// FirstBalance returns the first balance of the statement.
func (s Statement) FirstBalance() (Balance, bool) {
	if len(s.Balances) == 0 {
		return Balance{}, false
	}
	return s.Balances[0], true
}

// StatementCount counts the statements of every document.
func StatementCount(docs []Document) int {
	n := 0
	for _, d := range docs {
		n += len(d.Stmts)
	}
	return n
}
