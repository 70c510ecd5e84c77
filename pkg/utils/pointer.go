package utils

func ToPointer[T any](v T) *T {
	return &v
}

// ChunkStrings splits items into consecutive slices of at most size elements.
func ChunkStrings(items []string, size int) [][]string {
	if size <= 0 {
		size = len(items)
	}
	var chunks [][]string
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
