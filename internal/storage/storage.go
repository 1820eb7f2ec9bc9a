// Package storage persists generated documents. A reference returned by
// Persist is opaque to callers and only meaningful to the store that made it.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("document not found")

type DocumentStore interface {
	Persist(ctx context.Context, name, contentType string, data []byte) (string, error)
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// objectKey builds YYYY/MM/DD/<uuid>_<name> so refs never collide.
func objectKey(now time.Time, name string) string {
	safe := strings.Trim(unsafeChars.ReplaceAllString(name, "-"), "-.")
	if safe == "" {
		safe = "document"
	}
	return fmt.Sprintf("%d/%02d/%02d/%s_%s", now.Year(), now.Month(), now.Day(), uuid.NewString(), safe)
}
