package services

import (
	"fmt"
	"math/rand"
	"strings"
)

// Barcode symbologies supported by value generation.
const (
	BarcodeModeEAN13   = "EAN13"
	BarcodeModeCODE128 = "CODE128"
)

// BarcodeValueGenerator produces one candidate barcode value for a symbology.
// Uniqueness is the caller's problem; the generator only guarantees a
// well-formed value.
type BarcodeValueGenerator interface {
	Generate(mode string) (string, error)
}

type randomBarcodeGenerator struct{}

// NewBarcodeValueGenerator returns the default checksum-aware generator.
func NewBarcodeValueGenerator() BarcodeValueGenerator {
	return &randomBarcodeGenerator{}
}

func (g *randomBarcodeGenerator) Generate(mode string) (string, error) {
	switch mode {
	case BarcodeModeEAN13:
		// In-store prefix 200 keeps generated values out of the GS1-assigned range.
		var builder strings.Builder
		builder.WriteString("200")
		for i := 0; i < 9; i++ {
			builder.WriteByte(byte('0' + rand.Intn(10)))
		}
		payload := builder.String()
		return payload + string(byte('0'+EAN13CheckDigit(payload))), nil
	case BarcodeModeCODE128:
		var builder strings.Builder
		for i := 0; i < 12; i++ {
			builder.WriteByte(byte('0' + rand.Intn(10)))
		}
		return builder.String(), nil
	default:
		return "", fmt.Errorf("unsupported barcode mode '%s'", mode)
	}
}

// EAN13CheckDigit computes the check digit for a 12-digit EAN-13 payload.
// Digits at odd positions (1-based even) weigh 3, the rest weigh 1.
func EAN13CheckDigit(payload string) int {
	sum := 0
	for i, r := range payload {
		digit := int(r - '0')
		if i%2 == 1 {
			sum += digit * 3
		} else {
			sum += digit
		}
	}
	return (10 - sum%10) % 10
}
