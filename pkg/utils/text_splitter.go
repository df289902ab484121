package utils

// SplitText cuts a long text into overlapping chunks for embedding.
// Chunks are chunkSize runes with the last overlap runes repeated at the
// start of the next chunk, so sentences spanning a boundary stay findable.
// Slicing is strict by rune count; trimming to word boundaries would drop
// characters and business prompts are short enough not to care.
func SplitText(text string, chunkSize int, overlap int) []string {
	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	step := chunkSize - overlap
	if step <= 0 {
		// Degenerate overlap, fall back to disjoint chunks
		step = chunkSize
	}

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks
}
