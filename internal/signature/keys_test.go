package signature

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"math/big"
	"strings"
	"testing"

	"fjacquet/camt-attest/internal/ebicstest"
	"fjacquet/camt-attest/internal/verifyerror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicKeyFromDecimal(t *testing.T) {
	bank, _, _ := ebicstest.Keys(t)

	pub, err := PublicKeyFromDecimal(bank.N.String()+"\n", " 65537")
	require.NoError(t, err)
	assert.Equal(t, 0, pub.N.Cmp(bank.N))
	assert.Equal(t, 65537, pub.E)

	tests := []struct {
		name     string
		modulus  string
		exponent string
	}{
		{"hex modulus", "deadbeef", "65537"},
		{"negative modulus", "-35", "65537"},
		{"empty exponent", bank.N.String(), ""},
		{"exponent too small", bank.N.String(), "1"},
		{"exponent too large", bank.N.String(), new(big.Int).Lsh(big.NewInt(1), 40).String()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PublicKeyFromDecimal(tt.modulus, tt.exponent)
			assert.True(t, verifyerror.IsKind(err, verifyerror.KindMalformedInput), "got %v", err)
		})
	}
}

func TestParsePublicKeyPEM(t *testing.T) {
	bank, _, _ := ebicstest.Keys(t)

	pkix := ebicstest.PublicPEM(t, &bank.PublicKey)
	pkcs1 := pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: x509.MarshalPKCS1PublicKey(&bank.PublicKey)})

	for name, data := range map[string][]byte{"pkix": pkix, "pkcs1": pkcs1} {
		t.Run(name, func(t *testing.T) {
			pub, err := ParsePublicKeyPEM(data)
			require.NoError(t, err)
			assert.True(t, pub.Equal(&bank.PublicKey))
		})
	}

	_, err := ParsePublicKeyPEM([]byte("not a pem"))
	assert.True(t, verifyerror.IsKind(err, verifyerror.KindMalformedInput))

	_, err = ParsePublicKeyPEM(pem.EncodeToMemory(&pem.Block{Type: "EC PUBLIC KEY", Bytes: []byte{1}}))
	assert.ErrorContains(t, err, "unsupported PEM block type")

	_, err = ParsePublicKeyPEM(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: []byte{1, 2, 3}}))
	assert.True(t, verifyerror.IsKind(err, verifyerror.KindMalformedInput))
}

func TestParsePrivateKeyPEM(t *testing.T) {
	r := ebicstest.New(t, ebicstest.Options{})

	priv, err := ParsePrivateKeyPEM(r.ClientPrivatePEM(t))
	require.NoError(t, err)
	assert.True(t, priv.Equal(r.ClientKey))

	pkcs1 := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(r.ClientKey)})
	priv, err = ParsePrivateKeyPEM(pkcs1)
	require.NoError(t, err)
	assert.True(t, priv.Equal(r.ClientKey))

	_, err = ParsePrivateKeyPEM(r.BankPublicPEM(t))
	assert.True(t, verifyerror.IsKind(err, verifyerror.KindMalformedInput))
}

func TestKeyHash(t *testing.T) {
	pub := &rsa.PublicKey{N: big.NewInt(0x0abc), E: 65537}
	// sha256("10001 abc")
	assert.Equal(t, "53c8d9468db455435daaff0c86c959bc841dc41621d5d8afbfe41586bf979640", KeyHash(pub))

	bank, _, _ := ebicstest.Keys(t)
	assert.NotEqual(t, KeyHash(pub), KeyHash(&bank.PublicKey))
}

func TestCheckKeyHash(t *testing.T) {
	bank, _, _ := ebicstest.Keys(t)
	hash := KeyHash(&bank.PublicKey)

	assert.NoError(t, CheckKeyHash(&bank.PublicKey, hash))
	assert.NoError(t, CheckKeyHash(&bank.PublicKey, strings.ToUpper(hash[:32])+"\n "+hash[32:]))

	err := CheckKeyHash(&bank.PublicKey, strings.Repeat("0", 64))
	assert.True(t, verifyerror.IsKind(err, verifyerror.KindIntegrityMismatch))
}
