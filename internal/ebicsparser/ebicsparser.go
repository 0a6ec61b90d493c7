// Package ebicsparser extracts the protocol fields of an EBICS response from its
// canonicalized XML fragments and checks the envelope digest.
package ebicsparser

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"fjacquet/camt-attest/internal/verifyerror"
	"fjacquet/camt-attest/internal/xmlutils"
)

const parserName = "ebics"

// SupportedSignatureVersion is the only order-data signature version accepted in a
// digest block.
const SupportedSignatureVersion = "A005"

// Fragments holds the canonicalized fragments of one response, byte-exact as they
// appeared in the signed stream. DigestBlock is optional.
type Fragments struct {
	Authenticated  string
	SignedInfo     string
	SignatureValue string
	OrderData      string
	DigestBlock    string
}

// ProtocolFields is the verified envelope content. It is built once by Parse and
// must be treated as read-only.
type ProtocolFields struct {
	// DigestValue is the base64 digest of the authenticated block as received.
	DigestValue string
	// Digest is DigestValue decoded.
	Digest []byte
	// SignedInfoHash is SHA-256 over the signed info fragment.
	SignedInfoHash []byte
	SignatureValue string
	TransactionKey string
	BankTimestamp  string
	OrderData      string
	// Ciphertext is OrderData decoded.
	Ciphertext []byte

	// PayloadDigest and PayloadSignature are set only when a digest block was supplied.
	PayloadDigest    string
	PayloadSignature string
}

// HasDigestBlock reports whether the response carried an order-data digest block.
func (p *ProtocolFields) HasDigestBlock() bool {
	return p.PayloadDigest != ""
}

type captured struct {
	digestValue      string
	signatureValue   string
	transactionKey   string
	timestamp        string
	orderData        string
	payloadDigest    string
	payloadSignature string
	signatureVersion string
}

// Parse tokenizes the concatenated fragments, validates the segment and digest
// policy and returns the protocol fields.
func Parse(f Fragments) (*ProtocolFields, error) {
	authDigest := sha256.Sum256([]byte(f.Authenticated))
	signedInfoHash := sha256.Sum256([]byte(f.SignedInfo))

	var c captured
	x := xmlutils.NewExtractor(parserName, rules(&c)...)
	if err := x.RunString(f.Authenticated + f.SignedInfo + f.SignatureValue + f.OrderData + f.DigestBlock); err != nil {
		return nil, err
	}

	if err := c.requireAll(f.DigestBlock != ""); err != nil {
		return nil, err
	}

	expected := base64.StdEncoding.EncodeToString(authDigest[:])
	if c.digestValue != expected {
		return nil, verifyerror.New(verifyerror.KindIntegrityMismatch, parserName,
			"DigestValue "+c.digestValue+" does not match SHA-256 of the authenticated block "+expected+
				" (whitespace introduced by canonicalization is the most likely cause)")
	}

	ciphertext, err := decodeBase64(xmlutils.TagOrderData, c.orderData)
	if err != nil {
		return nil, err
	}

	fields := &ProtocolFields{
		DigestValue:    c.digestValue,
		Digest:         authDigest[:],
		SignedInfoHash: signedInfoHash[:],
		SignatureValue: c.signatureValue,
		TransactionKey: c.transactionKey,
		BankTimestamp:  c.timestamp,
		OrderData:      c.orderData,
		Ciphertext:     ciphertext,
	}

	if f.DigestBlock != "" {
		if c.signatureVersion != SupportedSignatureVersion {
			return nil, verifyerror.New(verifyerror.KindProtocolViolation, parserName,
				"unsupported signature version '"+c.signatureVersion+"', expected "+SupportedSignatureVersion)
		}
		payloadDigest := sha256.Sum256(ciphertext)
		if want := base64.StdEncoding.EncodeToString(payloadDigest[:]); c.payloadDigest != want {
			return nil, verifyerror.New(verifyerror.KindIntegrityMismatch, parserName,
				"DataDigest does not match SHA-256 of the order data")
		}
		fields.PayloadDigest = c.payloadDigest
		fields.PayloadSignature = c.payloadSignature
	}

	return fields, nil
}

func rules(c *captured) []xmlutils.Rule {
	return []xmlutils.Rule{
		{
			On:      xmlutils.EventAttr,
			Current: xmlutils.TagSegmentNumber,
			Name:    xmlutils.AttrLastSegment,
			Handle: func(ev xmlutils.Event, _ xmlutils.Cursor) error {
				if ev.Value != "true" {
					return verifyerror.New(verifyerror.KindProtocolViolation, parserName,
						"multi-segment responses are not supported (lastSegment="+ev.Value+")")
				}
				return nil
			},
		},
		{
			On:      xmlutils.EventText,
			Current: xmlutils.TagSegmentNumber,
			Handle: func(ev xmlutils.Event, _ xmlutils.Cursor) error {
				if ev.Value != "1" {
					return verifyerror.New(verifyerror.KindProtocolViolation, parserName,
						"unsupported segment number "+ev.Value)
				}
				return nil
			},
		},
		{
			On:      xmlutils.EventAttr,
			Current: xmlutils.TagDataDigest,
			Name:    xmlutils.AttrSignatureVersion,
			Handle: func(ev xmlutils.Event, _ xmlutils.Cursor) error {
				c.signatureVersion = ev.Value
				return nil
			},
		},
		xmlutils.CurrentText(&c.digestValue, xmlutils.TagDigestValue),
		xmlutils.CurrentText(&c.signatureValue, xmlutils.TagSignatureValue),
		xmlutils.CurrentText(&c.transactionKey, xmlutils.TagTransactionKey),
		xmlutils.CurrentText(&c.timestamp, xmlutils.TagTimestampBankParameter),
		xmlutils.CurrentText(&c.orderData, xmlutils.TagOrderData),
		xmlutils.CurrentText(&c.payloadDigest, xmlutils.TagDataDigest),
		xmlutils.CurrentText(&c.payloadSignature, xmlutils.TagSignatureData),
	}
}

type requiredField struct {
	field string
	value string
}

func (c *captured) requireAll(digestBlock bool) error {
	required := []requiredField{
		{xmlutils.TagDigestValue, c.digestValue},
		{xmlutils.TagSignatureValue, c.signatureValue},
		{xmlutils.TagTransactionKey, c.transactionKey},
		{xmlutils.TagTimestampBankParameter, c.timestamp},
		{xmlutils.TagOrderData, c.orderData},
	}
	if digestBlock {
		required = append(required,
			requiredField{xmlutils.TagDataDigest, c.payloadDigest},
			requiredField{xmlutils.TagSignatureData, c.payloadSignature},
		)
	}

	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &verifyerror.MissingFieldError{Parser: parserName, Field: r.field}
		}
	}
	return nil
}

func decodeBase64(field, value string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, &verifyerror.ParseError{Parser: parserName, Field: field, Value: abbreviate(value), Err: err}
	}
	return b, nil
}

func abbreviate(s string) string {
	const limit = 24
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
