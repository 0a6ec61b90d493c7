// Package txkey recovers the AES-128 transaction key of an EBICS response.
//
// The slow path decrypts the RSA-encrypted key with the client private key. The fast
// path takes an externally decrypted, still padded candidate and proves it correct by
// re-encrypting it with the public exponent, which is far cheaper than the private
// operation when execution cost is metered.
package txkey

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"

	"fjacquet/camt-attest/internal/meter"
	"fjacquet/camt-attest/internal/verifyerror"
)

const op = "txkey"

// KeySize is the length of an AES-128 transaction key.
const KeySize = 16

// minPadding is the minimum number of non-zero padding bytes of a PKCS#1 v1.5
// encryption block.
const minPadding = 8

// Recover decodes the base64 encrypted transaction key and recovers the symmetric
// key, through the fast path when candidate is non-empty.
func Recover(priv *rsa.PrivateKey, encryptedKey string, candidate []byte, rec meter.Recorder) ([]byte, error) {
	if priv == nil {
		return nil, verifyerror.New(verifyerror.KindDecryptionFailure, op, "no client private key")
	}
	ciphertext, err := base64.StdEncoding.DecodeString(encryptedKey)
	if err != nil {
		return nil, &verifyerror.ParseError{Parser: op, Field: "TransactionKey", Value: "<base64>", Err: err}
	}
	if len(candidate) > 0 {
		return RecoverFast(&priv.PublicKey, ciphertext, candidate, rec)
	}
	return RecoverSlow(priv, ciphertext, rec)
}

// RecoverFast validates candidate against ciphertext with a raw public-key
// operation and returns the unpadded key.
func RecoverFast(pub *rsa.PublicKey, ciphertext, candidate []byte, rec meter.Recorder) ([]byte, error) {
	rec = meter.OrNop(rec)

	if len(candidate) != pub.Size() {
		return nil, verifyerror.New(verifyerror.KindDecryptionFailure, op,
			fmt.Sprintf("decrypted key candidate is %d bytes, expected %d", len(candidate), pub.Size()))
	}
	key, err := StripPadding(candidate)
	if err != nil {
		return nil, err
	}

	c := new(big.Int).SetBytes(ciphertext)
	if c.Cmp(pub.N) >= 0 {
		return nil, verifyerror.New(verifyerror.KindDecryptionFailure, op, "encrypted transaction key is not smaller than the modulus")
	}
	m := new(big.Int).SetBytes(candidate)

	rec.Checkpoint("txkey.encrypt.start")
	reencrypted := new(big.Int).Exp(m, big.NewInt(int64(pub.E)), pub.N)
	rec.Checkpoint("txkey.encrypt.end")

	if reencrypted.Cmp(c) != 0 {
		return nil, verifyerror.New(verifyerror.KindIntegrityMismatch, op, "provided decrypted key does not match ciphertext")
	}
	return checkSize(key)
}

// RecoverSlow decrypts ciphertext with the private key.
func RecoverSlow(priv *rsa.PrivateKey, ciphertext []byte, rec meter.Recorder) ([]byte, error) {
	rec = meter.OrNop(rec)

	rec.Checkpoint("txkey.decrypt.start")
	key, err := rsa.DecryptPKCS1v15(rand.Reader, priv, ciphertext)
	rec.Checkpoint("txkey.decrypt.end")
	if err != nil {
		return nil, verifyerror.Wrap(verifyerror.KindDecryptionFailure, op, "decryption failed", err)
	}
	return checkSize(key)
}

// StripPadding removes PKCS#1 v1.5 encryption padding (00 02 PS 00 key) from
// block. PS must hold at least eight non-zero bytes.
func StripPadding(block []byte) ([]byte, error) {
	if len(block) < 3 || block[0] != 0x00 || block[1] != 0x02 {
		return nil, verifyerror.New(verifyerror.KindDecryptionFailure, op, "invalid PKCS#1 padding: bad header")
	}
	for i := 2; i < len(block); i++ {
		if block[i] != 0x00 {
			continue
		}
		if i < 2+minPadding {
			return nil, verifyerror.New(verifyerror.KindDecryptionFailure, op, "invalid PKCS#1 padding: padding too short")
		}
		return block[i+1:], nil
	}
	return nil, verifyerror.New(verifyerror.KindDecryptionFailure, op, "invalid PKCS#1 padding: no separator")
}

func checkSize(key []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, verifyerror.New(verifyerror.KindDecryptionFailure, op,
			fmt.Sprintf("transaction key is %d bytes, expected %d", len(key), KeySize))
	}
	out := make([]byte, KeySize)
	copy(out, key)
	return out, nil
}
