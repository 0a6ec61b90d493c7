// Package signature verifies the RSA PKCS#1 v1.5 / SHA-256 signatures of an EBICS
// response and loads the keys involved.
package signature

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"fjacquet/camt-attest/internal/verifyerror"
)

const op = "signature"

// VerifyBank checks the base64 bank signature against the SHA-256 hash of the
// signed info.
func VerifyBank(pub *rsa.PublicKey, signedInfoHash []byte, signatureValue string) error {
	sig, err := DecodeBase64(signatureValue)
	if err != nil {
		return err
	}
	if err := verify(pub, signedInfoHash, sig); err != nil {
		return verifyerror.Wrap(verifyerror.KindAuthenticityFailure, op, "bank signature invalid", err)
	}
	return nil
}

// VerifyWitness checks a witness signature over SHA-256 of the order-data
// ciphertext, as it was before decryption.
func VerifyWitness(pub *rsa.PublicKey, ciphertext, sig []byte) error {
	digest := sha256.Sum256(ciphertext)
	if err := verify(pub, digest[:], sig); err != nil {
		return verifyerror.Wrap(verifyerror.KindAuthenticityFailure, op, "payload signature invalid", err)
	}
	return nil
}

// DecodeHex decodes a hex signature. Whitespace anywhere in s is ignored, so
// line-wrapped dumps decode as-is.
func DecodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
	if err != nil {
		return nil, &verifyerror.ParseError{Parser: op, Field: "hex signature", Value: abbreviate(s), Err: err}
	}
	return b, nil
}

// DecodeBase64 decodes a base64 signature.
func DecodeBase64(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, &verifyerror.ParseError{Parser: op, Field: "base64 signature", Value: abbreviate(s), Err: err}
	}
	return b, nil
}

func verify(pub *rsa.PublicKey, digest, sig []byte) error {
	if pub == nil {
		return verifyerror.New(verifyerror.KindMalformedInput, op, "no public key")
	}
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest, sig)
}
