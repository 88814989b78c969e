package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinor(t *testing.T) {
	minor, err := ToMinor(decimal.NewFromInt(5000), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(500000), minor)

	minor, err = ToMinor(decimal.RequireFromString("199.99"), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(19999), minor)

	minor, err = ToMinor(decimal.RequireFromString("0.1").Add(decimal.RequireFromString("0.2")), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(30), minor)
}

func TestToMinor_NotExact(t *testing.T) {
	_, err := ToMinor(decimal.RequireFromString("10.005"), 100)
	assert.ErrorIs(t, err, ErrNotExact)
}

func TestFromMinor_RoundTrip(t *testing.T) {
	original := decimal.NewFromInt(5000)
	minor, err := ToMinor(original, 100)
	require.NoError(t, err)

	back := FromMinor(minor, 100)
	assert.True(t, back.Equal(original))
	assert.Equal(t, "5000", back.String())
}

func TestFromMinor_Fraction(t *testing.T) {
	assert.Equal(t, "199.99", FromMinor(19999, 100).String())
	assert.Equal(t, "12", FromMinor(12, 1).String())
}
