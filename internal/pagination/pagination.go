// Package pagination walks page-numbered GraphQL connections until the
// server-declared total has been received.
package pagination

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	"smashrank/internal/metrics"

	"github.com/rs/zerolog/log"
)

// ErrMissingConnection is returned when the response has no object at the
// connection path, e.g. an event id that does not exist
var ErrMissingConnection = errors.New("connection missing from response")

// ErrShortConnection is returned when the server stops sending nodes before
// its declared total has been received
var ErrShortConnection = errors.New("connection ended before declared total")

// Caller executes one query and returns the response's data object
type Caller interface {
	Call(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error)
}

// Query describes a paginated connection. Path is the chain of fields from the
// data object down to the connection, e.g. ["event", "sets"].
type Query struct {
	Text      string
	Variables map[string]any
	Path      []string
	PerPage   int

	// PageVar and PerPageVar name the query variables; they default to
	// "page" and "perPage"
	PageVar    string
	PerPageVar string
}

type connection struct {
	PageInfo struct {
		Total int `json:"total"`
	} `json:"pageInfo"`
	Nodes []json.RawMessage `json:"nodes"`
}

// Nodes returns a lazy sequence of every node in the connection, decoded as T.
// Each iteration of the sequence starts over from page 1 and issues its own
// calls; nothing is cached. A failed call is yielded as the final error.
func Nodes[T any](ctx context.Context, caller Caller, q Query) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		label := strings.Join(q.Path, ".")

		count := 0
		for page := 1; ; page++ {
			conn, err := fetchPage(ctx, caller, q, page)
			if err != nil {
				yield(zero, fmt.Errorf("failed to fetch %s page %d: %w", label, page, err))
				return
			}
			metrics.RecordPage(label)

			for _, raw := range conn.Nodes {
				var node T
				if err := json.Unmarshal(raw, &node); err != nil {
					yield(zero, fmt.Errorf("failed to decode %s node on page %d: %w", label, page, err))
					return
				}
				if !yield(node, nil) {
					return
				}
			}

			count += len(conn.Nodes)
			total := conn.PageInfo.Total
			if count >= total {
				return
			}
			if len(conn.Nodes) == 0 {
				log.Warn().
					Str("connection", label).
					Int("page", page).
					Int("received", count).
					Int("total", total).
					Msg("Empty page before reaching declared total")
				yield(zero, fmt.Errorf("%w: %s received %d of %d", ErrShortConnection, label, count, total))
				return
			}
		}
	}
}

// Collect drains a sequence into a slice, stopping at the first error
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for item, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
	return out, nil
}

func fetchPage(ctx context.Context, caller Caller, q Query, page int) (*connection, error) {
	pageVar, perPageVar := q.PageVar, q.PerPageVar
	if pageVar == "" {
		pageVar = "page"
	}
	if perPageVar == "" {
		perPageVar = "perPage"
	}

	vars := make(map[string]any, len(q.Variables)+2)
	for k, v := range q.Variables {
		vars[k] = v
	}
	vars[pageVar] = page
	vars[perPageVar] = q.PerPage

	data, err := caller.Call(ctx, q.Text, vars)
	if err != nil {
		return nil, err
	}

	raw, err := descend(data, q.Path)
	if err != nil {
		return nil, err
	}

	var conn connection
	if err := json.Unmarshal(raw, &conn); err != nil {
		return nil, fmt.Errorf("failed to decode connection: %w", err)
	}
	return &conn, nil
}

// descend follows path through nested JSON objects
func descend(data json.RawMessage, path []string) (json.RawMessage, error) {
	current := data
	for i, field := range path {
		if isNull(current) {
			return nil, fmt.Errorf("%w: %s is null", ErrMissingConnection, strings.Join(path[:i], "."))
		}

		var obj map[string]json.RawMessage
		if err := json.Unmarshal(current, &obj); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", field, err)
		}

		next, ok := obj[field]
		if !ok {
			return nil, fmt.Errorf("%w: no field %s", ErrMissingConnection, strings.Join(path[:i+1], "."))
		}
		current = next
	}

	if isNull(current) {
		return nil, fmt.Errorf("%w: %s is null", ErrMissingConnection, strings.Join(path, "."))
	}
	return current, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
