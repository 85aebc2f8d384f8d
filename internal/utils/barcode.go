// internal/utils/barcode.go
package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Ambiguous glyphs (0/O, 1/I) are left out; codes get read off printed sheets.
const barcodeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const barcodeRandomLength = 10

func GenerateRandomString(charset string, length int) (string, error) {
	b := make([]byte, length)

	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		b[i] = charset[n.Int64()]
	}

	return string(b), nil
}

// GenerateBarcode returns a printable code of the form CAP<capID>-XXXXXXXXXX.
func GenerateBarcode(capID uint64) (string, error) {
	suffix, err := GenerateRandomString(barcodeCharset, barcodeRandomLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate barcode: %w", err)
	}
	return fmt.Sprintf("CAP%d-%s", capID, suffix), nil
}
