package ebicsparser

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"

	"fjacquet/camt-attest/internal/ebicstest"
	"fjacquet/camt-attest/internal/verifyerror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fragments(r *ebicstest.Response) Fragments {
	return Fragments{
		Authenticated:  r.Authenticated,
		SignedInfo:     r.SignedInfo,
		SignatureValue: r.SignatureValue,
		OrderData:      r.OrderData,
		DigestBlock:    r.DigestBlock,
	}
}

func TestParse_ValidResponse(t *testing.T) {
	r := ebicstest.New(t, ebicstest.Options{})

	fields, err := Parse(fragments(r))
	require.NoError(t, err)

	authDigest := sha256.Sum256([]byte(r.Authenticated))
	signedInfoHash := sha256.Sum256([]byte(r.SignedInfo))
	assert.Equal(t, base64.StdEncoding.EncodeToString(authDigest[:]), fields.DigestValue)
	assert.Equal(t, authDigest[:], fields.Digest)
	assert.Equal(t, signedInfoHash[:], fields.SignedInfoHash)
	assert.Equal(t, base64.StdEncoding.EncodeToString(r.EncryptedKey), fields.TransactionKey)
	assert.Equal(t, ebicstest.Timestamp, fields.BankTimestamp)
	assert.Equal(t, r.Ciphertext, fields.Ciphertext)
	assert.NotEmpty(t, fields.SignatureValue)
	assert.False(t, fields.HasDigestBlock())
	assert.Empty(t, fields.PayloadSignature)
}

func TestParse_DigestBlock(t *testing.T) {
	r := ebicstest.New(t, ebicstest.Options{DigestBlock: true})

	fields, err := Parse(fragments(r))
	require.NoError(t, err)
	assert.True(t, fields.HasDigestBlock())
	assert.Equal(t, base64.StdEncoding.EncodeToString(r.WitnessSignature), fields.PayloadSignature)

	sum := sha256.Sum256(r.Ciphertext)
	assert.Equal(t, base64.StdEncoding.EncodeToString(sum[:]), fields.PayloadDigest)
}

func TestParse_Failures(t *testing.T) {
	r := ebicstest.New(t, ebicstest.Options{DigestBlock: true})

	tests := []struct {
		name   string
		mutate func(f *Fragments)
		kind   verifyerror.Kind
		msg    string
	}{
		{
			name: "mutated authenticated byte",
			mutate: func(f *Fragments) {
				f.Authenticated = strings.Replace(f.Authenticated, "000000", "000001", 1)
			},
			kind: verifyerror.KindIntegrityMismatch,
			msg:  "whitespace",
		},
		{
			name: "extra whitespace in authenticated block",
			mutate: func(f *Fragments) {
				f.Authenticated = strings.Replace(f.Authenticated, "<ReturnCode", "\n<ReturnCode", 1)
			},
			kind: verifyerror.KindIntegrityMismatch,
		},
		{
			name: "multi-segment response",
			mutate: func(f *Fragments) {
				f.Authenticated = strings.Replace(f.Authenticated, `lastSegment="true"`, `lastSegment="false"`, 1)
			},
			kind: verifyerror.KindProtocolViolation,
			msg:  "multi-segment",
		},
		{
			name: "second segment",
			mutate: func(f *Fragments) {
				f.Authenticated = strings.Replace(f.Authenticated, `">1</SegmentNumber>`, `">2</SegmentNumber>`, 1)
			},
			kind: verifyerror.KindProtocolViolation,
			msg:  "segment number 2",
		},
		{
			name: "missing order data",
			mutate: func(f *Fragments) {
				f.OrderData = "<OrderData></OrderData>"
			},
			kind: verifyerror.KindProtocolViolation,
			msg:  "missing field OrderData",
		},
		{
			name: "missing signature value",
			mutate: func(f *Fragments) {
				f.SignatureValue = ""
			},
			kind: verifyerror.KindProtocolViolation,
			msg:  "missing field SignatureValue",
		},
		{
			name: "order data is not base64",
			mutate: func(f *Fragments) {
				f.OrderData = "<OrderData>not*base64</OrderData>"
				f.DigestBlock = ""
			},
			kind: verifyerror.KindMalformedInput,
		},
		{
			name: "unsupported signature version",
			mutate: func(f *Fragments) {
				f.DigestBlock = strings.Replace(f.DigestBlock, "A005", "A006", 1)
			},
			kind: verifyerror.KindProtocolViolation,
			msg:  "A006",
		},
		{
			name: "payload digest mismatch",
			mutate: func(f *Fragments) {
				f.DigestBlock = ebicstest.FlipBase64(f.DigestBlock)
			},
			kind: verifyerror.KindIntegrityMismatch,
			msg:  "DataDigest",
		},
		{
			name: "digest block without signature data",
			mutate: func(f *Fragments) {
				f.DigestBlock = f.DigestBlock[:strings.Index(f.DigestBlock, "<SignatureData")]
			},
			kind: verifyerror.KindProtocolViolation,
			msg:  "missing field SignatureData",
		},
		{
			name: "malformed fragment",
			mutate: func(f *Fragments) {
				f.OrderData = "<OrderData>abc</Order>"
			},
			kind: verifyerror.KindMalformedInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fragments(r)
			tt.mutate(&f)

			fields, err := Parse(f)
			require.Error(t, err)
			assert.Nil(t, fields)
			assert.True(t, verifyerror.IsKind(err, tt.kind), "got %v", err)
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}
}

func TestParse_SegmentNumberOptional(t *testing.T) {
	r := ebicstest.New(t, ebicstest.Options{})
	f := fragments(r)

	f.Authenticated = strings.Replace(f.Authenticated, `<SegmentNumber lastSegment="true">1</SegmentNumber>`, "", 1)
	sum := sha256.Sum256([]byte(f.Authenticated))
	f.SignedInfo = replaceDigest(t, f.SignedInfo, base64.StdEncoding.EncodeToString(sum[:]))

	_, err := Parse(f)
	assert.NoError(t, err)
}

func TestParse_Idempotent(t *testing.T) {
	r := ebicstest.New(t, ebicstest.Options{})

	first, err := Parse(fragments(r))
	require.NoError(t, err)
	second, err := Parse(fragments(r))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func replaceDigest(t *testing.T, signedInfo, digest string) string {
	t.Helper()
	start := strings.Index(signedInfo, "<ds:DigestValue>") + len("<ds:DigestValue>")
	end := strings.Index(signedInfo, "</ds:DigestValue>")
	require.True(t, start > 0 && end > start)
	return signedInfo[:start] + digest + signedInfo[end:]
}
