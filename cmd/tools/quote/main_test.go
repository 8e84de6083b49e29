package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cart-pricing/internal/pricing"
)

func TestDecodeCartForms(t *testing.T) {
	lines, err := decodeCart(strings.NewReader(`[{"productId":"p1","quantity":3}]`))
	require.NoError(t, err)
	require.Equal(t, []pricing.CartLine{{ProductID: "p1", Quantity: 3}}, lines)

	lines, err = decodeCart(strings.NewReader(`{"lines":[{"productId":" p2 ","quantity":1}]}`))
	require.NoError(t, err)
	require.Equal(t, []pricing.CartLine{{ProductID: "p2", Quantity: 1}}, lines)

	lines, err = decodeCart(strings.NewReader("  \n"))
	require.NoError(t, err)
	require.Empty(t, lines)

	_, err = decodeCart(strings.NewReader(`[{`))
	require.Error(t, err)
}

func TestRunPricesTuesdayCart(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"-date", "2024-01-02", "-tz", "UTC"},
		strings.NewReader(`[{"productId":"p1","quantity":10}]`), &out, zerolog.Nop())
	require.NoError(t, err)
	require.Contains(t, out.String(), `"isTuesday": true`)
	require.Contains(t, out.String(), `"currency": "KRW"`)
}

func TestRunStrictRejectsUnknownProduct(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"-strict", "-date", "2024-01-01"},
		strings.NewReader(`[{"productId":"p9","quantity":1}]`), &out, zerolog.Nop())
	require.Error(t, err)
	require.Empty(t, out.String())
}

func TestRunRejectsBadDate(t *testing.T) {
	err := run([]string{"-date", "tuesday"}, strings.NewReader(`[]`), &bytes.Buffer{}, zerolog.Nop())
	require.Error(t, err)
}
