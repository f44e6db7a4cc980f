// Package csvio reads the job's CSV inputs and writes its CSV outputs.
package csvio

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/calfire-rainfall-etl/internal/domain"
)

// latin1BOM is a UTF-8 byte order mark as it reads after Latin-1 decoding.
const latin1BOM = "\u00ef\u00bb\u00bf"

// header maps normalized column names to their index.
type header map[string]int

func newHeader(cols []string, normalize func(string) string) header {
	h := make(header, len(cols))
	for i, c := range cols {
		if i == 0 {
			c = strings.TrimPrefix(strings.TrimPrefix(c, "\ufeff"), latin1BOM)
		}
		name := normalize(c)
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}
	return h
}

func (h header) has(col string) bool {
	_, ok := h[col]
	return ok
}

// missing returns the columns of want that are not present.
func (h header) missing(want ...string) []string {
	var out []string
	for _, c := range want {
		if !h.has(c) {
			out = append(out, c)
		}
	}
	return out
}

func (h header) get(row []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func schemaError(path string, missing []string) error {
	return fmt.Errorf("%s: %w: missing columns %s", path, domain.ErrSchema, strings.Join(missing, ", "))
}

func lowerTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
