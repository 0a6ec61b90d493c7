// Package camtparser decodes camt.053 statement members into group header,
// statement and balance records.
package camtparser

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"fjacquet/camt-attest/internal/logging"
	"fjacquet/camt-attest/internal/models"
	"fjacquet/camt-attest/internal/verifyerror"
	"fjacquet/camt-attest/internal/xmlutils"
)

const parserName = "camt53"

var (
	grpHdr = []string{xmlutils.TagDocument, xmlutils.TagBkToCstmrStmt, xmlutils.TagGrpHdr}
	stmt   = []string{xmlutils.TagDocument, xmlutils.TagBkToCstmrStmt, xmlutils.TagStmt}
	bal    = join(stmt, xmlutils.TagBal)
)

// Parser decodes camt.053 members.
type Parser struct {
	logger logging.Logger
}

// New creates a Parser. A nil logger discards.
func New(logger logging.Logger) *Parser {
	return &Parser{logger: logging.OrDiscard(logger)}
}

// state accumulates one document while the extractor runs.
type state struct {
	doc     models.Document
	stmt    models.Statement
	balance models.Balance
}

// Parse decodes one member. The content must be UTF-8.
func (p *Parser) Parse(content []byte) (*models.Document, error) {
	if !utf8.Valid(content) {
		return nil, verifyerror.New(verifyerror.KindMalformedInput, parserName, "statement is not valid UTF-8")
	}

	s := &state{}
	x := xmlutils.NewExtractor(parserName, s.rules()...)
	if err := x.Run(bytes.NewReader(content)); err != nil {
		return nil, err
	}

	p.logger.Debug("Parsed camt.053 member",
		logging.Field{Key: logging.FieldCount, Value: len(s.doc.Stmts)})
	return &s.doc, nil
}

// ParseFiltered decodes a member and keeps only the statements of iban. It returns
// nil without error when no statement matches.
func (p *Parser) ParseFiltered(content []byte, iban string) (*models.Document, error) {
	doc, err := p.Parse(content)
	if err != nil {
		return nil, err
	}
	filtered := FilterByIBAN(doc, iban)
	if filtered == nil {
		p.logger.Debug("No statement matches the account",
			logging.Field{Key: logging.FieldCount, Value: len(doc.Stmts)})
	}
	return filtered, nil
}

// FilterByIBAN returns a copy of doc holding only the statements whose IBAN equals
// iban, or nil when none does.
func FilterByIBAN(doc *models.Document, iban string) *models.Document {
	if doc == nil {
		return nil
	}
	out := &models.Document{GrpHdr: doc.GrpHdr}
	for _, s := range doc.Stmts {
		if s.IBAN == iban {
			out.Stmts = append(out.Stmts, s)
		}
	}
	if len(out.Stmts) == 0 {
		return nil
	}
	return out
}

// LooksLikeStatement reports whether content has a camt.053 statement root.
// Content that is not XML is not a statement.
func LooksLikeStatement(content []byte) bool {
	ok, err := xmlutils.HasPath(content, xmlutils.XPathStatementRoot)
	return err == nil && ok
}

func (s *state) rules() []xmlutils.Rule {
	return []xmlutils.Rule{
		xmlutils.TextAt(&s.doc.GrpHdr.MsgID, join(grpHdr, "MsgId")...),
		xmlutils.TextAt(&s.doc.GrpHdr.CreDtTm, join(grpHdr, "CreDtTm")...),
		{
			On:     xmlutils.EventText,
			Path:   join(grpHdr, "MsgPgntn", "PgNb"),
			Handle: s.setPageNumber,
		},
		{
			On:     xmlutils.EventText,
			Path:   join(grpHdr, "MsgPgntn", "LastPgInd"),
			Handle: s.setLastPage,
		},

		{On: xmlutils.EventOpen, Path: stmt, Handle: s.resetStatement},
		xmlutils.TextAt(&s.stmt.ElctrncSeqNb, join(stmt, "ElctrncSeqNb")...),
		xmlutils.TextAt(&s.stmt.IBAN, join(stmt, "Acct", "Id", "IBAN")...),
		xmlutils.TextAt(&s.stmt.CreDtTm, join(stmt, "CreDtTm")...),
		xmlutils.TextAt(&s.stmt.FrDtTm, join(stmt, "FrToDt", "FrDtTm")...),
		xmlutils.TextAt(&s.stmt.ToDtTm, join(stmt, "FrToDt", "ToDtTm")...),

		{On: xmlutils.EventOpen, Path: bal, Handle: s.resetBalance},
		xmlutils.TextAt(&s.balance.Cd, join(bal, "Tp", "CdOrPrtry", "Cd")...),
		xmlutils.TextAt(&s.balance.Amt, join(bal, "Amt")...),
		{
			On:   xmlutils.EventAttr,
			Path: join(bal, "Amt"),
			Name: xmlutils.AttrCurrency,
			Handle: func(ev xmlutils.Event, _ xmlutils.Cursor) error {
				s.balance.Ccy = ev.Value
				return nil
			},
		},
		xmlutils.TextAt(&s.balance.Dt, join(bal, "Dt", "Dt")...),
		xmlutils.TextAt(&s.balance.CdtDbtInd, join(bal, "CdtDbtInd")...),
		{On: xmlutils.EventClose, Path: bal, Handle: s.pushBalance},

		{On: xmlutils.EventClose, Path: stmt, Handle: s.pushStatement},
	}
}

func (s *state) setPageNumber(ev xmlutils.Event, _ xmlutils.Cursor) error {
	n, err := strconv.Atoi(strings.TrimSpace(ev.Value))
	if err == nil && n < 0 {
		err = errors.New("negative page number")
	}
	if err != nil {
		return &verifyerror.ParseError{Parser: parserName, Field: "PgNb", Value: ev.Value, Err: err}
	}
	s.doc.GrpHdr.PgNb = n
	return nil
}

func (s *state) setLastPage(ev xmlutils.Event, _ xmlutils.Cursor) error {
	switch strings.TrimSpace(ev.Value) {
	case "true", "1":
		s.doc.GrpHdr.LastPgInd = true
	case "false", "0":
		s.doc.GrpHdr.LastPgInd = false
	default:
		return &verifyerror.ParseError{Parser: parserName, Field: "LastPgInd", Value: ev.Value,
			Err: errors.New("not an xs:boolean")}
	}
	return nil
}

func (s *state) resetStatement(xmlutils.Event, xmlutils.Cursor) error {
	s.stmt = models.Statement{}
	return nil
}

func (s *state) resetBalance(xmlutils.Event, xmlutils.Cursor) error {
	s.balance = models.Balance{}
	return nil
}

func (s *state) pushBalance(xmlutils.Event, xmlutils.Cursor) error {
	if _, err := s.balance.Decimal(); err != nil {
		return &verifyerror.ParseError{Parser: parserName, Field: "Amt", Value: s.balance.Amt, Err: err}
	}
	s.stmt.Balances = append(s.stmt.Balances, s.balance)
	s.balance = models.Balance{}
	return nil
}

func (s *state) pushStatement(xmlutils.Event, xmlutils.Cursor) error {
	s.doc.Stmts = append(s.doc.Stmts, s.stmt)
	s.stmt = models.Statement{}
	return nil
}

func join(base []string, segs ...string) []string {
	out := make([]string, 0, len(base)+len(segs))
	out = append(out, base...)
	return append(out, segs...)
}
