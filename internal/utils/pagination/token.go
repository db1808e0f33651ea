package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

const timeFormat = time.RFC3339Nano // Use a precise time format

// Cursor is the position of the last record of a page in canonical record order.
type Cursor struct {
	OccurredOn time.Time
	CreatedAt  time.Time
	ID         string
}

// EncodeToken creates a URL-safe base64 token from a cursor.
// This is used for consistent pagination across the record repositories.
func EncodeToken(c Cursor) string {
	tokenStr := fmt.Sprintf("%s|%s|%s", c.OccurredOn.Format(timeFormat), c.CreatedAt.Format(timeFormat), c.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(tokenStr))
}

// DecodeToken parses a token produced by EncodeToken.
func DecodeToken(token string) (Cursor, error) {
	decodedBytes, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token format (base64 decode): %w", err)
	}
	parts := strings.SplitN(string(decodedBytes), "|", 3)
	if len(parts) != 3 {
		return Cursor{}, fmt.Errorf("invalid pagination token format (split)")
	}

	occurredOn, err := time.Parse(timeFormat, parts[0])
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token format (occurred on parse): %w", err)
	}

	createdAt, err := time.Parse(timeFormat, parts[1])
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token format (created_at parse): %w", err)
	}

	return Cursor{OccurredOn: occurredOn, CreatedAt: createdAt, ID: parts[2]}, nil
}

// After reports whether a record at position (occurredOn, createdAt, id) sorts after the cursor
// in canonical order (occurredOn desc, createdAt desc, id desc), i.e. belongs on a later page.
func (c Cursor) After(occurredOn, createdAt time.Time, id string) bool {
	if !occurredOn.Equal(c.OccurredOn) {
		return occurredOn.Before(c.OccurredOn)
	}
	if !createdAt.Equal(c.CreatedAt) {
		return createdAt.Before(c.CreatedAt)
	}
	return id < c.ID
}
