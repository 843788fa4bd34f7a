package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEAN13CheckDigit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		payload string
		want    int
	}{
		{payload: "400638133393", want: 1},
		{payload: "590123412345", want: 7},
		{payload: "000000000000", want: 0},
		{payload: "200000000000", want: 8},
	}
	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, EAN13CheckDigit(tt.payload))
		})
	}
}

func TestGenerateEAN13(t *testing.T) {
	t.Parallel()

	generator := NewBarcodeValueGenerator()
	for i := 0; i < 50; i++ {
		value, err := generator.Generate(BarcodeModeEAN13)
		require.NoError(t, err)
		require.Len(t, value, 13)
		require.True(t, strings.HasPrefix(value, "200"))
		for _, r := range value {
			require.True(t, r >= '0' && r <= '9')
		}
		require.Equal(t, EAN13CheckDigit(value[:12]), int(value[12]-'0'))
	}
}

func TestGenerateCODE128(t *testing.T) {
	t.Parallel()

	generator := NewBarcodeValueGenerator()
	value, err := generator.Generate(BarcodeModeCODE128)
	require.NoError(t, err)
	require.Len(t, value, 12)
	for _, r := range value {
		require.True(t, r >= '0' && r <= '9')
	}
}

func TestGenerateUnknownMode(t *testing.T) {
	t.Parallel()

	generator := NewBarcodeValueGenerator()
	_, err := generator.Generate("QR")
	require.Error(t, err)
}
