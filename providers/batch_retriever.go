package providers

import (
	"context"
	"log/slog"
	"sync"

	"restomap.app/errors"
	"restomap.app/models"
)

// BatchRetriever fetches restaurant details for arbitrary-length identifier
// lists by fanning chunked requests out to the directory provider.
//
// The aggregation policy deliberately favors availability over completeness:
// when at least one chunk succeeds the operation succeeds and failed chunks'
// items are silently omitted. Only when every chunk fails does the operation
// fail, with the first chunk's cause.
type BatchRetriever struct {
	provider  DirectoryProvider
	chunkSize int
}

// FetchOptions pre-slices the identifier list before any fetching.
// A Limit of 0 means "through the end of the list".
type FetchOptions struct {
	Offset int
	Limit  int
}

// NewBatchRetriever creates a retriever that splits requests into chunks of
// at most chunkSize ids, capped at the provider's per-request limit.
func NewBatchRetriever(provider DirectoryProvider, chunkSize int) *BatchRetriever {
	if chunkSize < 1 || chunkSize > MaxIDsPerRequest {
		chunkSize = MaxIDsPerRequest
	}
	return &BatchRetriever{
		provider:  provider,
		chunkSize: chunkSize,
	}
}

type chunkResult struct {
	items []models.RestaurantListItem
	err   error
}

// Fetch retrieves details for the given identifiers, preserving their relative
// order in the output regardless of chunk completion order.
func (r *BatchRetriever) Fetch(ctx context.Context, ids []string, opts FetchOptions) ([]models.RestaurantListItem, error) {
	if len(ids) == 0 {
		return nil, errors.NewValidationError("restaurant id list cannot be empty")
	}

	sliced := sliceIDs(ids, opts)
	if len(sliced) == 0 {
		return []models.RestaurantListItem{}, nil
	}

	chunks := chunkIDs(sliced, r.chunkSize)
	results := make([]chunkResult, len(chunks))

	// Fan out one request per chunk; each writes only its own slot, so the
	// join needs no shared counters. Sibling chunks are never cancelled when
	// one of them fails.
	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk []string) {
			defer wg.Done()
			items, err := r.provider.FetchByIDs(ctx, chunk)
			results[i] = chunkResult{items: items, err: err}
		}(i, chunk)
	}
	wg.Wait()

	return r.aggregate(sliced, chunks, results)
}

func (r *BatchRetriever) aggregate(ids []string, chunks [][]string, results []chunkResult) ([]models.RestaurantListItem, error) {
	byID := make(map[string]models.RestaurantListItem)
	failed := 0
	var firstErr error

	for i, result := range results {
		if result.err != nil {
			failed++
			if firstErr == nil {
				firstErr = result.err
			}
			slog.Debug("directory chunk failed",
				"chunk", i, "size", len(chunks[i]), "error", result.err)
			continue
		}
		for _, item := range result.items {
			byID[item.ID] = item
		}
	}

	if failed == len(results) {
		slog.Error("all directory chunks failed", "chunks", len(results), "error", firstErr)
		return nil, firstErr
	}

	if failed > 0 {
		slog.Warn("partial directory result", "chunks", len(results), "failed", failed)
	}

	// Reassemble in input order; identifiers with no successful record are
	// dropped without surfacing a partial error.
	items := make([]models.RestaurantListItem, 0, len(byID))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func sliceIDs(ids []string, opts FetchOptions) []string {
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(ids) {
		return nil
	}

	end := len(ids)
	if opts.Limit > 0 && offset+opts.Limit < end {
		end = offset + opts.Limit
	}
	return ids[offset:end]
}

func chunkIDs(ids []string, size int) [][]string {
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
