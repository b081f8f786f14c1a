package barcode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/scanner-agent/internal/domain"
	"github.com/jhoicas/scanner-agent/internal/domain/barcode"
)

func TestNormalize_Strict(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want barcode.Code
	}{
		{name: "12 digits unchanged", raw: "123456789012", want: "123456789012"},
		{name: "11 digits left-padded", raw: "12345678901", want: "012345678901"},
		{name: "13 digits leading zero dropped", raw: "0123456789012", want: "123456789012"},
		{name: "13 digits without leading zero kept", raw: "4006381333931", want: "4006381333931"},
		{name: "EAN-8 kept", raw: "96385074", want: "96385074"},
		{name: "noise stripped", raw: " 0012-3456-7890 5\r\n", want: "012345678905"},
		{name: "full-width digits folded", raw: "１２３４５６７８９０１２", want: "123456789012"},
		{name: "14 digits kept", raw: "00012345678905", want: "00012345678905"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := barcode.Normalize(tt.raw, barcode.PolicyStrict)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_StrictRejectsEmpty(t *testing.T) {
	for _, raw := range []string{"", "abc", "   ", "\n"} {
		_, err := barcode.Normalize(raw, barcode.PolicyStrict)
		assert.ErrorIs(t, err, domain.ErrInvalidCode, "raw=%q", raw)
	}
}

func TestNormalize_Lenient(t *testing.T) {
	got, err := barcode.Normalize("  ABC-123 \t x\n", barcode.PolicyLenient)
	require.NoError(t, err)
	assert.Equal(t, barcode.Code("ABC-123x"), got)

	// Digit repairs only apply to the strict policy.
	got, err = barcode.Normalize("12345678901", barcode.PolicyLenient)
	require.NoError(t, err)
	assert.Equal(t, barcode.Code("12345678901"), got)

	_, err = barcode.Normalize(" \t\r\n", barcode.PolicyLenient)
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
}

func TestNormalize_Deterministic(t *testing.T) {
	inputs := []string{"0012345678905", "12345678901", "x9y8z7", "ＡＢＣ１"}
	for _, policy := range []barcode.Policy{barcode.PolicyStrict, barcode.PolicyLenient} {
		for _, raw := range inputs {
			a, errA := barcode.Normalize(raw, policy)
			b, errB := barcode.Normalize(raw, policy)
			assert.Equal(t, a, b)
			assert.Equal(t, errA, errB)
		}
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := barcode.ParsePolicy("Lenient")
	require.NoError(t, err)
	assert.Equal(t, barcode.PolicyLenient, p)

	p, err = barcode.ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, barcode.PolicyStrict, p)

	_, err = barcode.ParsePolicy("fuzzy")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, "strict", barcode.PolicyStrict.String())
}
