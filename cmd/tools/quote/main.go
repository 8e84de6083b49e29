// Command quote prices a cart from the command line using the same engine as
// the HTTP API.
//
//	echo '[{"productId":"p1","quantity":10}]' | quote -date 2024-01-02
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"

	"github.com/noah-isme/cart-pricing/internal/catalog"
	"github.com/noah-isme/cart-pricing/internal/pricing"
	"github.com/noah-isme/cart-pricing/internal/quote"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if err := run(os.Args[1:], os.Stdin, os.Stdout, logger); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		logger.Fatal().Err(err).Msg("quote failed")
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer, logger zerolog.Logger) error {
	fs := flag.NewFlagSet("quote", flag.ContinueOnError)
	seedPath := fs.String("seed", "", "catalog seed JSON (defaults to the built-in catalog)")
	cartPath := fs.String("cart", "-", "cart JSON file, - for stdin")
	date := fs.String("date", "", "pricing instant, RFC3339 or YYYY-MM-DD (defaults to now)")
	tz := fs.String("tz", "Asia/Seoul", "store timezone")
	strict := fs.Bool("strict", false, "fail when any line cannot be priced")
	currency := fs.String("currency", "KRW", "currency code reported in the quote")
	if err := fs.Parse(args); err != nil {
		return err
	}

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}
	at, err := quote.ParseAt(*date, loc)
	if err != nil {
		return err
	}

	seed, err := catalog.LoadSeed(*seedPath)
	if err != nil {
		return err
	}
	store, err := catalog.NewStore(seed)
	if err != nil {
		return err
	}

	in := stdin
	if *cartPath != "-" {
		f, err := os.Open(*cartPath)
		if err != nil {
			return fmt.Errorf("open cart: %w", err)
		}
		defer f.Close()
		in = f
	}
	lines, err := decodeCart(in)
	if err != nil {
		return err
	}

	svc := &quote.Service{
		Catalog:   store,
		Engine:    pricing.New(pricing.DefaultPolicy()),
		Location:  loc,
		Strict:    *strict,
		Currency:  strings.ToUpper(*currency),
		Logger:    logger,
		SaleLabel: catalog.SaleLabel,
	}
	q, err := svc.Quote(context.Background(), lines, at)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(q)
}

// decodeCart accepts either a bare array of lines or a quote request object.
func decodeCart(r io.Reader) ([]pricing.CartLine, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if raw[0] == '[' {
		var lines []pricing.CartLine
		if err := json.Unmarshal(raw, &lines); err != nil {
			return nil, fmt.Errorf("decode cart: %w", err)
		}
		return lines, nil
	}
	var req quote.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return req.CartLines(), nil
}
