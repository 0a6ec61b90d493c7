package pipeline

import (
	"crypto/rsa"

	"fjacquet/camt-attest/internal/ebicsparser"
	"fjacquet/camt-attest/internal/signature"
	"fjacquet/camt-attest/internal/verifyerror"
)

// Inputs are the in-memory values of one run. Optional values may be left empty.
type Inputs struct {
	Fragments ebicsparser.Fragments

	// BankModulus and BankExponent are decimal strings. BankPEM is used instead
	// when set.
	BankModulus  string
	BankExponent string
	BankPEM      []byte
	// BankKeyHash is the expected EBICS hash of the bank key, hex.
	BankKeyHash string

	// ClientPEM holds the client private key, PKCS#8 or PKCS#1.
	ClientPEM []byte
	// DecryptedTxKey is the padded transaction key candidate for the fast path.
	DecryptedTxKey []byte

	WitnessPEM []byte
	// WitnessSignature is hex. When empty the digest block signature is used.
	WitnessSignature string

	IBAN     string
	HostInfo string
}

type keys struct {
	bank    *rsa.PublicKey
	client  *rsa.PrivateKey
	witness *rsa.PublicKey
}

func (in Inputs) loadKeys() (*keys, error) {
	var k keys
	var err error

	switch {
	case len(in.BankPEM) > 0:
		k.bank, err = signature.ParsePublicKeyPEM(in.BankPEM)
	case in.BankModulus != "" || in.BankExponent != "":
		k.bank, err = signature.PublicKeyFromDecimal(in.BankModulus, in.BankExponent)
	default:
		err = &verifyerror.MissingFieldError{Parser: "inputs", Field: "bank public key"}
	}
	if err != nil {
		return nil, err
	}

	if len(in.ClientPEM) == 0 {
		return nil, &verifyerror.MissingFieldError{Parser: "inputs", Field: "client private key"}
	}
	if k.client, err = signature.ParsePrivateKeyPEM(in.ClientPEM); err != nil {
		return nil, err
	}

	if len(in.WitnessPEM) > 0 {
		if k.witness, err = signature.ParsePublicKeyPEM(in.WitnessPEM); err != nil {
			return nil, err
		}
	} else if in.WitnessSignature != "" {
		return nil, verifyerror.New(verifyerror.KindProtocolViolation, "inputs", "witness signature supplied without a witness key")
	}

	if in.IBAN == "" {
		return nil, &verifyerror.MissingFieldError{Parser: "inputs", Field: "IBAN"}
	}
	return &k, nil
}
