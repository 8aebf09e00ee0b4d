// Package batch provides slice chunking sized to DynamoDB request limits.
package batch

const (
	// MaxWriteItems is the BatchWriteItem per-request item limit.
	MaxWriteItems = 25

	// MaxTransactItems is the TransactWriteItems per-request item limit.
	MaxTransactItems = 100

	// MaxInOperands is the operand limit for an IN filter expression.
	MaxInOperands = 100
)

// Chunk splits items into consecutive slices of at most size elements.
// The returned slices share the backing array of items. A nil or empty
// input yields no chunks; size < 1 yields a single chunk.
func Chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size < 1 {
		return [][]T{items}
	}

	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
