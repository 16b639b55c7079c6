package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/spx/internal/shared"
)

// Chunk splits ids into consecutive slices of at most limit elements. The last chunk may be shorter.
func Chunk(ids []string, limit int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	if limit <= 0 {
		return [][]string{ids}
	}

	chunks := make([][]string, 0, (len(ids)+limit-1)/limit)
	for start := 0; start < len(ids); start += limit {
		end := min(start+limit, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// ApplyInChunks calls fn for each chunk of ids, in order, and returns how many ids were applied.
//
// The first failing chunk stops the run; chunks already applied stay applied.
func ApplyInChunks(ctx context.Context, ids []string, limit int, fn func(ctx context.Context, chunk []string) error) (int, error) {
	if limit <= 0 {
		return 0, fmt.Errorf("%w: chunk limit must be positive, got %d", shared.ErrInvalidArgument, limit)
	}

	chunks := Chunk(ids, limit)
	applied := 0
	for i, chunk := range chunks {
		if err := fn(ctx, chunk); err != nil {
			return applied, fmt.Errorf("%w: chunk %d/%d: %w", shared.ErrCatalogMutation, i+1, len(chunks), err)
		}
		applied += len(chunk)
	}
	return applied, nil
}
