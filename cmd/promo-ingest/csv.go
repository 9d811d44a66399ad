package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/foodhub-promotions/internal/domain/promotion"
)

var requiredColumns = []string{"code", "discount_type", "discount_value"}

// columns maps a header name to its field index.
type columns map[string]int

func readHeader(rec []string) (columns, error) {
	cols := make(columns, len(rec))
	for i, name := range rec {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, errors.Errorf("missing column %q", name)
		}
	}
	return cols, nil
}

func (c columns) get(rec []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (c columns) code(rec []string) string {
	return promotion.NormalizeCode(c.get(rec, "code"))
}

// parseRow builds a create request from one CSV record. Empty optional
// fields keep their defaults.
func parseRow(c columns, rec []string) (promotion.CreateRequest, error) {
	req := promotion.CreateRequest{
		Code:         c.get(rec, "code"),
		Description:  c.get(rec, "description"),
		DiscountType: promotion.DiscountType(strings.ToUpper(c.get(rec, "discount_type"))),
		BranchID:     c.get(rec, "branch_id"),
		Status:       promotion.Status(strings.ToUpper(c.get(rec, "status"))),
	}

	var err error
	if req.DiscountValue, err = decimal.NewFromString(c.get(rec, "discount_value")); err != nil {
		return req, errors.Wrap(err, "discount_value")
	}
	if v := c.get(rec, "max_discount"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return req, errors.Wrap(err, "max_discount")
		}
		req.MaxDiscount = decimal.NewNullDecimal(d)
	}
	if req.MaxUses, err = optInt(c.get(rec, "max_uses")); err != nil {
		return req, errors.Wrap(err, "max_uses")
	}
	if req.PerUserLimit, err = optInt(c.get(rec, "per_user_limit")); err != nil {
		return req, errors.Wrap(err, "per_user_limit")
	}
	if req.ValidFrom, err = optTime(c.get(rec, "valid_from")); err != nil {
		return req, errors.Wrap(err, "valid_from")
	}
	if req.ValidTo, err = optTime(c.get(rec, "valid_to")); err != nil {
		return req, errors.Wrap(err, "valid_to")
	}
	return req, nil
}

func optInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func optTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// streamRows opens a gzipped CSV file and calls fn for each record after the
// header.
func streamRows(ctx context.Context, path string, fn func(cols columns, rec []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	r := csv.NewReader(gz)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return errors.Wrapf(err, "read header of %s", path)
	}
	cols, err := readHeader(header)
	if err != nil {
		return errors.Wrapf(err, "header of %s", path)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "read %s", path)
		}
		if err := fn(cols, rec); err != nil {
			return err
		}
	}
}
