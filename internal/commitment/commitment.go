// Package commitment builds the selectively disclosed record of a verified
// statement. The record is a projection: only the fields declared here leave the
// pipeline.
package commitment

import (
	"bytes"
	"encoding/json"
	"fmt"

	"fjacquet/camt-attest/internal/models"
	"fjacquet/camt-attest/internal/verifyerror"
)

const op = "commitment"

// Commitment is the disclosed record.
type Commitment struct {
	HostInfo string                `json:"hostinfo"`
	IBAN     string                `json:"iban"`
	Stmts    []StatementCommitment `json:"stmts"`
}

// StatementCommitment discloses the period of one statement and its first balance.
type StatementCommitment struct {
	ElctrncSeqNb string `json:"elctrnc_seq_nb"`
	FrDtTm       string `json:"fr_dt_tm"`
	ToDtTm       string `json:"to_dt_tm"`
	Amt          string `json:"amt"`
	Ccy          string `json:"ccy"`
	Cd           string `json:"cd"`
}

// Build projects filtered documents into a commitment. Every document must hold
// exactly one statement with at least one balance.
func Build(docs []models.Document, hostInfo, iban string) (*Commitment, error) {
	c := &Commitment{
		HostInfo: hostInfo,
		IBAN:     iban,
		Stmts:    make([]StatementCommitment, 0, len(docs)),
	}

	for i, doc := range docs {
		if len(doc.Stmts) != 1 {
			return nil, verifyerror.New(verifyerror.KindCardinalityViolation, op,
				fmt.Sprintf("expected exactly one statement per filtered document, document %d has %d", i, len(doc.Stmts)))
		}
		s := doc.Stmts[0]
		first, ok := s.FirstBalance()
		if !ok {
			return nil, verifyerror.New(verifyerror.KindCardinalityViolation, op,
				fmt.Sprintf("statement %s of document %d has no balance", s.ElctrncSeqNb, i))
		}
		c.Stmts = append(c.Stmts, StatementCommitment{
			ElctrncSeqNb: s.ElctrncSeqNb,
			FrDtTm:       s.FrDtTm,
			ToDtTm:       s.ToDtTm,
			Amt:          first.Amt,
			Ccy:          first.Ccy,
			Cd:           first.Cd,
		})
	}
	return c, nil
}

// Serialize renders the commitment as compact UTF-8 JSON without a trailing
// newline. HTML characters are not escaped.
func Serialize(c *Commitment) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c); err != nil {
		return "", fmt.Errorf("failed to encode commitment: %w", err)
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}
