package sqlite

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// formatTime formats t as stored in TEXT timestamp columns.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime parses a TEXT timestamp column, naming the column on failure.
func parseTime(value, column string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", column, err)
	}
	return t, nil
}

// appendPagination appends LIMIT and OFFSET clauses. SQLite only accepts
// OFFSET after LIMIT, so an offset alone is paired with LIMIT -1.
func appendPagination(query *strings.Builder, args *[]any, limit, offset int) {
	if limit > 0 {
		query.WriteString(" LIMIT ?")
		*args = append(*args, limit)
	} else if offset > 0 {
		query.WriteString(" LIMIT -1")
	}
	if offset > 0 {
		query.WriteString(" OFFSET ?")
		*args = append(*args, offset)
	}
}

// encodeList encodes a slice for a JSON list column. Empty slices are
// stored as [].
func encodeList[T any](column string, list []T) (string, error) {
	if len(list) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", column, err)
	}
	return string(b), nil
}

// decodeList decodes a JSON list column. [] decodes to a nil slice.
func decodeList[T any](column, value string) ([]T, error) {
	var list []T
	if err := json.Unmarshal([]byte(value), &list); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", column, err)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list, nil
}
