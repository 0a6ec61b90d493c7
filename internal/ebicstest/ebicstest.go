// Package ebicstest builds complete, cryptographically valid EBICS download
// responses for tests: fresh RSA keys, canonical fragments, an encrypted
// transaction key and an AES/zlib/zip order-data payload.
package ebicstest

import (
	"bytes"
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zlib"
)

const (
	// KeyBits is the size of every generated RSA key.
	KeyBits = 2048
	// Timestamp is the bank timestamp placed in the authenticated block.
	Timestamp = "2023-11-29T21:54:31.658Z"
	// HostInfo is a sample run metadata string.
	HostInfo = "EBIXHOST/2023-11-29"

	dsNamespace = "http://www.w3.org/2000/09/xmldsig#"
)

// Member is an archive entry placed in the order data.
type Member struct {
	Name    string
	Content []byte
}

// Options tunes the generated response. The zero value produces a single-member
// response carrying Camt053 without a digest block.
type Options struct {
	Members     []Member
	DigestBlock bool
}

// Response is a generated EBICS response with every secret that produced it.
type Response struct {
	BankKey    *rsa.PrivateKey
	ClientKey  *rsa.PrivateKey
	WitnessKey *rsa.PrivateKey

	// TransactionKey is the AES-128 key protecting the order data.
	TransactionKey []byte
	// PaddedTransactionKey is the PKCS#1 v1.5 block whose encryption is the
	// TransactionKey element.
	PaddedTransactionKey []byte
	EncryptedKey         []byte

	Authenticated  string
	SignedInfo     string
	SignatureValue string
	OrderData      string
	DigestBlock    string

	Ciphertext       []byte
	WitnessSignature []byte
	Members          []Member
}

var keys struct {
	once                  sync.Once
	bank, client, witness *rsa.PrivateKey
	err                   error
}

// Keys returns the bank, client and witness keys shared by every response of the
// test binary.
func Keys(t testing.TB) (bank, client, witness *rsa.PrivateKey) {
	t.Helper()
	keys.once.Do(func() {
		if keys.bank, keys.err = rsa.GenerateKey(rand.Reader, KeyBits); keys.err != nil {
			return
		}
		if keys.client, keys.err = rsa.GenerateKey(rand.Reader, KeyBits); keys.err != nil {
			return
		}
		keys.witness, keys.err = rsa.GenerateKey(rand.Reader, KeyBits)
	})
	if keys.err != nil {
		t.Fatalf("generate RSA keys: %v", keys.err)
	}
	return keys.bank, keys.client, keys.witness
}

// New builds a response.
func New(t testing.TB, opts Options) *Response {
	t.Helper()
	bank, client, witness := Keys(t)

	members := opts.Members
	if members == nil {
		members = []Member{{Name: "camt053_CH4308307000289537312.xml", Content: []byte(Camt053)}}
	}

	r := &Response{BankKey: bank, ClientKey: client, WitnessKey: witness, Members: members}

	r.TransactionKey = random(t, 16)
	r.PaddedTransactionKey = Pad(t, client.Size(), r.TransactionKey)
	r.EncryptedKey = RawEncrypt(&client.PublicKey, r.PaddedTransactionKey)

	r.Ciphertext = Seal(t, r.TransactionKey, Archive(t, members))
	r.OrderData = "<OrderData>" + base64.StdEncoding.EncodeToString(r.Ciphertext) + "</OrderData>"

	r.Authenticated = `<header authenticate="true"><static><HostID>EBIXHOST</HostID>` +
		`<TransactionID>3A4E1BDF9A5C44A89D1863F08AC6BC0E</TransactionID><NumSegments>1</NumSegments></static>` +
		`<mutable><TransactionPhase>Initialisation</TransactionPhase>` +
		`<SegmentNumber lastSegment="true">1</SegmentNumber></mutable></header>` +
		`<ReturnCode authenticate="true">000000</ReturnCode>` +
		`<DataEncryptionInfo authenticate="true"><EncryptionPubKeyDigest Algorithm="http://www.w3.org/2001/04/xmlenc#sha256" Version="E002">` +
		KeyDigest(&client.PublicKey) + `</EncryptionPubKeyDigest><TransactionKey>` +
		base64.StdEncoding.EncodeToString(r.EncryptedKey) + `</TransactionKey></DataEncryptionInfo>` +
		`<TimestampBankParameter authenticate="true">` + Timestamp + `</TimestampBankParameter>`

	authDigest := sha256.Sum256([]byte(r.Authenticated))
	r.SignedInfo = `<ds:SignedInfo xmlns:ds="` + dsNamespace + `">` +
		`<ds:CanonicalizationMethod Algorithm="http://www.w3.org/TR/2001/REC-xml-c14n-20010315"></ds:CanonicalizationMethod>` +
		`<ds:SignatureMethod Algorithm="http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"></ds:SignatureMethod>` +
		`<ds:Reference URI="#xpointer(//*[@authenticate='true'])"><ds:Transforms>` +
		`<ds:Transform Algorithm="http://www.w3.org/TR/2001/REC-xml-c14n-20010315"></ds:Transform></ds:Transforms>` +
		`<ds:DigestMethod Algorithm="http://www.w3.org/2001/04/xmlenc#sha256"></ds:DigestMethod>` +
		`<ds:DigestValue>` + base64.StdEncoding.EncodeToString(authDigest[:]) + `</ds:DigestValue>` +
		`</ds:Reference></ds:SignedInfo>`

	r.SignatureValue = `<ds:SignatureValue xmlns:ds="` + dsNamespace + `">` +
		base64.StdEncoding.EncodeToString(Sign(t, bank, []byte(r.SignedInfo))) + `</ds:SignatureValue>`

	r.WitnessSignature = Sign(t, witness, r.Ciphertext)
	if opts.DigestBlock {
		ctDigest := sha256.Sum256(r.Ciphertext)
		r.DigestBlock = `<DataDigest SignatureVersion="A005">` + base64.StdEncoding.EncodeToString(ctDigest[:]) +
			`</DataDigest><SignatureData authenticate="true">` +
			base64.StdEncoding.EncodeToString(r.WitnessSignature) + `</SignatureData>`
	}

	return r
}

// BankModulus returns the bank modulus in decimal.
func (r *Response) BankModulus() string { return r.BankKey.N.String() }

// BankExponent returns the bank public exponent in decimal.
func (r *Response) BankExponent() string { return big.NewInt(int64(r.BankKey.E)).String() }

// BankPublicPEM returns the bank public key as a PKIX PEM block.
func (r *Response) BankPublicPEM(t testing.TB) []byte { return PublicPEM(t, &r.BankKey.PublicKey) }

// WitnessPublicPEM returns the witness public key as a PKIX PEM block.
func (r *Response) WitnessPublicPEM(t testing.TB) []byte { return PublicPEM(t, &r.WitnessKey.PublicKey) }

// ClientPrivatePEM returns the client private key as a PKCS#8 PEM block.
func (r *Response) ClientPrivatePEM(t testing.TB) []byte {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(r.ClientKey)
	if err != nil {
		t.Fatalf("marshal client key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

// WitnessSignatureHex returns the witness signature hex-encoded.
func (r *Response) WitnessSignatureHex() string { return hex.EncodeToString(r.WitnessSignature) }

// Files names every input file written by WriteFiles.
type Files struct {
	Prefix           string
	SignedInfo       string
	Authenticated    string
	SignatureValue   string
	OrderData        string
	DigestBlock      string
	BankPEM          string
	ClientPEM        string
	WitnessPEM       string
	DecryptedTxKey   string
	WitnessSignature string
}

// WriteFiles writes the response into dir using the <prefix>-<Part> naming
// convention, together with the key material.
func (r *Response) WriteFiles(t testing.TB, dir, prefix string) Files {
	t.Helper()
	base := filepath.Join(dir, prefix)
	f := Files{
		Prefix:           base,
		SignedInfo:       base + "-SignedInfo",
		Authenticated:    base + "-authenticated",
		SignatureValue:   base + "-SignatureValue",
		OrderData:        base + "-OrderData",
		BankPEM:          filepath.Join(dir, "bank.pem"),
		ClientPEM:        filepath.Join(dir, "client.pem"),
		WitnessPEM:       filepath.Join(dir, "witness.pem"),
		DecryptedTxKey:   filepath.Join(dir, "transaction-key.bin"),
		WitnessSignature: filepath.Join(dir, "witness.sig"),
	}

	write(t, f.SignedInfo, []byte(r.SignedInfo))
	write(t, f.Authenticated, []byte(r.Authenticated))
	write(t, f.SignatureValue, []byte(r.SignatureValue))
	write(t, f.OrderData, []byte(r.OrderData))
	if r.DigestBlock != "" {
		f.DigestBlock = base + "-DataDigest"
		write(t, f.DigestBlock, []byte(r.DigestBlock))
	}
	write(t, f.BankPEM, r.BankPublicPEM(t))
	write(t, f.ClientPEM, r.ClientPrivatePEM(t))
	write(t, f.WitnessPEM, r.WitnessPublicPEM(t))
	write(t, f.DecryptedTxKey, r.PaddedTransactionKey)
	write(t, f.WitnessSignature, []byte(r.WitnessSignatureHex()))
	return f
}

// Pad builds an EBICS/PKCS#1 v1.5 encryption block of size k around key.
func Pad(t testing.TB, k int, key []byte) []byte {
	t.Helper()
	psLen := k - 3 - len(key)
	if psLen < 8 {
		t.Fatalf("key of %d bytes does not fit a %d byte block", len(key), k)
	}
	block := make([]byte, k)
	block[1] = 0x02
	ps := block[2 : 2+psLen]
	for i := range ps {
		for ps[i] == 0 {
			ps[i] = random(t, 1)[0]
		}
	}
	copy(block[3+psLen:], key)
	return block
}

// RawEncrypt computes block^e mod n and returns it left-padded to the modulus size.
func RawEncrypt(pub *rsa.PublicKey, block []byte) []byte {
	m := new(big.Int).SetBytes(block)
	c := new(big.Int).Exp(m, big.NewInt(int64(pub.E)), pub.N)
	return c.FillBytes(make([]byte, pub.Size()))
}

// Sign produces a PKCS#1 v1.5 signature over SHA-256(data).
func Sign(t testing.TB, key *rsa.PrivateKey, data []byte) []byte {
	t.Helper()
	digest := sha256.Sum256(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return sig
}

// Archive zips members in order and compresses the archive with zlib.
func Archive(t testing.TB, members []Member) []byte {
	t.Helper()
	var zipped bytes.Buffer
	zw := zip.NewWriter(&zipped)
	for _, m := range members {
		w, err := zw.Create(m.Name)
		if err != nil {
			t.Fatalf("zip create %s: %v", m.Name, err)
		}
		if _, err := w.Write(m.Content); err != nil {
			t.Fatalf("zip write %s: %v", m.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}

	var compressed bytes.Buffer
	zl := zlib.NewWriter(&compressed)
	if _, err := zl.Write(zipped.Bytes()); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := zl.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}
	return compressed.Bytes()
}

// Seal pads plaintext with ANSI X9.23 padding and encrypts it with AES-128-CBC
// under a zero IV.
func Seal(t testing.TB, key, plaintext []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatalf("aes: %v", err)
	}
	padLen := aes.BlockSize - len(plaintext)%aes.BlockSize
	padded := make([]byte, len(plaintext)+padLen)
	copy(padded, plaintext)
	padded[len(padded)-1] = byte(padLen)

	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, make([]byte, aes.BlockSize)).CryptBlocks(out, padded)
	return out
}

// PublicPEM encodes pub as a PKIX PEM block.
func PublicPEM(t testing.TB, pub *rsa.PublicKey) []byte {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

// KeyDigest is the EBICS public key digest as placed in EncryptionPubKeyDigest.
func KeyDigest(pub *rsa.PublicKey) string {
	text := big.NewInt(int64(pub.E)).Text(16) + " " + pub.N.Text(16)
	sum := sha256.Sum256([]byte(text))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// FlipBase64 replaces one base64 character inside the element text of fragment so
// the value still decodes but differs.
func FlipBase64(fragment string) string {
	b := []byte(fragment)
	start := bytes.IndexByte(b, '>') + 1
	for i := start + 8; i < len(b) && b[i] != '<'; i++ {
		switch {
		case b[i] == 'A':
			b[i] = 'B'
			return string(b)
		case b[i] >= 'B' && b[i] <= 'Z':
			b[i] = 'A'
			return string(b)
		}
	}
	return fragment
}

func random(t testing.TB, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("random: %v", err)
	}
	return b
}

func write(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
