package main

import (
	"context"
	"log/slog"
	"math/bits"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/foodhub-promotions/internal/domain/promotion"
)

const bloomFPR = 0.001

type options struct {
	expectedCodes uint
	workers       int
	dryRun        bool
}

type creator interface {
	CreatePromotion(ctx context.Context, req promotion.CreateRequest) (*promotion.Promotion, error)
}

type stats struct {
	created   atomic.Int64
	existing  atomic.Int64
	duplicate atomic.Int64
	invalid   atomic.Int64
}

// ingest creates every promotion whose code appears exactly once across
// files. Rows that fail to parse or validate are logged and skipped.
func ingest(ctx context.Context, svc creator, files []string, opts options) (*stats, error) {
	if len(files) > bits.UintSize {
		return nil, errors.Errorf("at most %d files per run", bits.UintSize)
	}

	dups, err := findDuplicates(ctx, files, opts.expectedCodes)
	if err != nil {
		return nil, errors.Wrap(err, "find duplicate codes")
	}
	slog.Info("duplicate codes found", slog.Int("count", len(dups)))

	var st stats
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.workers, 1))

	for _, path := range files {
		err := streamRows(ctx, path, func(cols columns, rec []string) error {
			if _, dup := dups[cols.code(rec)]; dup {
				st.duplicate.Add(1)
				return nil
			}
			req, err := parseRow(cols, rec)
			if err != nil {
				st.invalid.Add(1)
				slog.Warn("invalid row", slog.String("file", path), slog.String("code", req.Code), slog.String("error", err.Error()))
				return nil
			}
			g.Go(func() error {
				return create(ctx, svc, req, &st)
			})
			return nil
		})
		if err != nil {
			// A failed insert cancels ctx and surfaces here as a read error.
			if werr := g.Wait(); werr != nil {
				return nil, werr
			}
			return nil, err
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &st, nil
}

func create(ctx context.Context, svc creator, req promotion.CreateRequest, st *stats) error {
	_, err := svc.CreatePromotion(ctx, req)
	var invalid *promotion.ValidationError
	switch {
	case err == nil:
		st.created.Add(1)
	case errors.Is(err, promotion.ErrAlreadyExists):
		st.existing.Add(1)
	case errors.As(err, &invalid):
		st.invalid.Add(1)
		slog.Warn("invalid promotion", slog.String("code", req.Code), slog.String("error", invalid.Error()))
	default:
		return errors.Wrapf(err, "create %s", req.Code)
	}
	return nil
}

// findDuplicates returns the normalized codes that occur more than once
// across files. One bloom filter per file narrows the second pass to codes
// that may exist in another file; exact per-file bitmasks then confirm them.
func findDuplicates(ctx context.Context, files []string, expected uint) (map[string]struct{}, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(max(expected, 1), bloomFPR)
			err := streamRows(gctx, path, func(cols columns, rec []string) error {
				if code := cols.code(rec); code != "" {
					filter.AddString(code)
				}
				return nil
			})
			if err != nil {
				return errors.Wrapf(err, "build filter for file %d", i+1)
			}
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	type fileResult struct {
		candidates map[string]uint
		repeated   []string
	}
	results := make([]fileResult, len(files))

	g, gctx = errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			var (
				bit        = uint(1) << uint(i)
				seen       = make(map[string]struct{})
				candidates = make(map[string]uint)
				repeated   []string
			)
			err := streamRows(gctx, path, func(cols columns, rec []string) error {
				code := cols.code(rec)
				if code == "" {
					return nil
				}
				if _, ok := seen[code]; ok {
					repeated = append(repeated, code)
					return nil
				}
				seen[code] = struct{}{}
				for j, f := range filters {
					if j != i && f.TestString(code) {
						candidates[code] |= bit
						break
					}
				}
				return nil
			})
			if err != nil {
				return errors.Wrapf(err, "scan file %d", i+1)
			}
			results[i] = fileResult{candidates: candidates, repeated: repeated}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	dups := make(map[string]struct{})
	for _, r := range results {
		for code, mask := range r.candidates {
			merged[code] |= mask
		}
		for _, code := range r.repeated {
			dups[code] = struct{}{}
		}
	}
	for code, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			dups[code] = struct{}{}
		}
	}
	return dups, nil
}
