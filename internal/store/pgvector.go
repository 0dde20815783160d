package store

import (
	"strconv"
	"strings"
)

// formatVector renders an embedding as a Postgres pgvector literal,
// e.g. "[0.1,0.2,0.3]", the same format this system's original
// format_vector helper produces.
func formatVector(embedding []float32) string {
	if embedding == nil {
		return ""
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// nullableVector returns nil for an empty embedding so the column is
// stored as SQL NULL, and the pgvector literal otherwise.
func nullableVector(embedding []float32) any {
	if len(embedding) == 0 {
		return nil
	}
	return formatVector(embedding)
}
