package signature

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"fjacquet/camt-attest/internal/verifyerror"
)

const keysOp = "keys"

// PublicKeyFromDecimal builds an RSA public key from decimal modulus and exponent
// strings. Surrounding whitespace is ignored.
func PublicKeyFromDecimal(modulus, exponent string) (*rsa.PublicKey, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(modulus), 10)
	if !ok || n.Sign() <= 0 {
		return nil, &verifyerror.ParseError{Parser: keysOp, Field: "modulus", Value: abbreviate(modulus), Err: errors.New("not a positive decimal integer")}
	}
	e, ok := new(big.Int).SetString(strings.TrimSpace(exponent), 10)
	if !ok || !e.IsInt64() || e.Int64() < 3 || e.Int64() > 1<<31-1 {
		return nil, &verifyerror.ParseError{Parser: keysOp, Field: "exponent", Value: abbreviate(exponent), Err: errors.New("not a valid RSA public exponent")}
	}
	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

// ParsePublicKeyPEM decodes a PKIX ("PUBLIC KEY"), PKCS#1 ("RSA PUBLIC KEY") or
// certificate PEM block into an RSA public key.
func ParsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, err := decodePEM(data)
	if err != nil {
		return nil, err
	}

	var key any
	switch block.Type {
	case "PUBLIC KEY":
		key, err = x509.ParsePKIXPublicKey(block.Bytes)
	case "RSA PUBLIC KEY":
		key, err = x509.ParsePKCS1PublicKey(block.Bytes)
	case "CERTIFICATE":
		var cert *x509.Certificate
		if cert, err = x509.ParseCertificate(block.Bytes); err == nil {
			key = cert.PublicKey
		}
	default:
		return nil, verifyerror.New(verifyerror.KindMalformedInput, keysOp,
			fmt.Sprintf("unsupported PEM block type %q for a public key", block.Type))
	}
	if err != nil {
		return nil, verifyerror.Wrap(verifyerror.KindMalformedInput, keysOp, "failed to parse public key", err)
	}

	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, verifyerror.New(verifyerror.KindMalformedInput, keysOp, fmt.Sprintf("public key is %T, not RSA", key))
	}
	return pub, nil
}

// ParsePrivateKeyPEM decodes a PKCS#8 ("PRIVATE KEY") or PKCS#1 ("RSA PRIVATE KEY")
// PEM block into an RSA private key.
func ParsePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, err := decodePEM(data)
	if err != nil {
		return nil, err
	}

	var key any
	switch block.Type {
	case "PRIVATE KEY":
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	default:
		return nil, verifyerror.New(verifyerror.KindMalformedInput, keysOp,
			fmt.Sprintf("unsupported PEM block type %q for a private key", block.Type))
	}
	if err != nil {
		return nil, verifyerror.Wrap(verifyerror.KindMalformedInput, keysOp, "failed to parse private key", err)
	}

	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, verifyerror.New(verifyerror.KindMalformedInput, keysOp, fmt.Sprintf("private key is %T, not RSA", key))
	}
	return priv, nil
}

// KeyHash returns the EBICS public key hash: the lower-case hex SHA-256 of
// "<hex exponent> <hex modulus>", both without leading zeros.
func KeyHash(pub *rsa.PublicKey) string {
	text := big.NewInt(int64(pub.E)).Text(16) + " " + pub.N.Text(16)
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// CheckKeyHash compares the hash of pub with an expected value, ignoring case and
// whitespace.
func CheckKeyHash(pub *rsa.PublicKey, expected string) error {
	want := strings.ToLower(strings.Join(strings.Fields(expected), ""))
	if got := KeyHash(pub); got != want {
		return verifyerror.New(verifyerror.KindIntegrityMismatch, keysOp,
			"bank key hash "+got+" does not match the expected "+want)
	}
	return nil
}

func decodePEM(data []byte) (*pem.Block, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, verifyerror.New(verifyerror.KindMalformedInput, keysOp, "no PEM block found")
	}
	return block, nil
}

func abbreviate(s string) string {
	const limit = 24
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
