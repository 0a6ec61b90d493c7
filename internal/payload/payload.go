// Package payload turns EBICS order data into archive members: AES-128-CBC
// decryption under a zero IV, zlib decompression and ZIP extraction.
package payload

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"io"

	"fjacquet/camt-attest/internal/verifyerror"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zlib"
)

const op = "payload"

// Member is one archive entry. Name and Content are opaque bytes; Name is not
// required to be valid UTF-8.
type Member struct {
	Name    string
	Content []byte
}

// Open decrypts, decompresses and unpacks ciphertext. Either every member is
// returned or none.
func Open(ciphertext, key []byte) ([]Member, error) {
	plain, err := Decrypt(ciphertext, key)
	if err != nil {
		return nil, err
	}
	archive, err := Decompress(plain)
	if err != nil {
		return nil, err
	}
	return Unzip(archive)
}

// Decrypt runs AES-128-CBC with a zero IV over ciphertext. The protocol padding is
// left in place.
func Decrypt(ciphertext, key []byte) ([]byte, error) {
	if len(key) != 16 {
		return nil, verifyerror.New(verifyerror.KindDecryptionFailure, op,
			fmt.Sprintf("AES-128 key must be 16 bytes, got %d", len(key)))
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, verifyerror.New(verifyerror.KindMalformedInput, op,
			fmt.Sprintf("ciphertext length %d is not a non-zero multiple of %d", len(ciphertext), aes.BlockSize))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, verifyerror.Wrap(verifyerror.KindDecryptionFailure, op, "failed to create cipher", err)
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, make([]byte, aes.BlockSize)).CryptBlocks(out, ciphertext)
	return out, nil
}

// Decompress inflates a zlib stream. Bytes after the end of the stream, such as
// cipher padding, are ignored.
func Decompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, verifyerror.Wrap(verifyerror.KindMalformedInput, op, "decrypted order data is not a zlib stream", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, verifyerror.Wrap(verifyerror.KindMalformedInput, op, "zlib decompression failed", err)
	}
	return out, nil
}

// Unzip returns every entry of a ZIP archive in archive order.
func Unzip(archive []byte) ([]Member, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, verifyerror.Wrap(verifyerror.KindMalformedInput, op, "order data is not a ZIP archive", err)
	}

	members := make([]Member, 0, len(zr.File))
	for _, f := range zr.File {
		content, err := readEntry(f)
		if err != nil {
			return nil, verifyerror.Wrap(verifyerror.KindMalformedInput, op, "failed to read archive entry "+f.Name, err)
		}
		members = append(members, Member{Name: f.Name, Content: content})
	}
	return members, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
