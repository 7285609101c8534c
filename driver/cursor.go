package driver

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Pagination carries cursor-based pagination parameters. Zero values mean
// "not set"; pagination is inactive when all four are zero.
type Pagination struct {
	// First limits a forward page to the first N rows.
	First int

	// Last limits a backward page to the last N rows. When set without
	// First, the store is scanned in the opposite direction and results are
	// reversed back to caller order.
	Last int

	// Before is an opaque cursor; only rows strictly before it are returned.
	Before string

	// After is an opaque cursor; only rows strictly after it are returned.
	After string
}

func (p Pagination) active() bool {
	return p.First > 0 || p.Last > 0 || p.Before != "" || p.After != ""
}

func (p Pagination) backward() bool {
	return p.Last > 0 && p.First == 0
}

func (p Pagination) limit() int64 {
	if p.backward() {
		return int64(p.Last)
	}
	return int64(p.First)
}

// EncodeCursor builds an opaque cursor from a result document and the order
// definition the query used. The cursor records the document's value for
// each ordered field; dotted paths resolve into nested documents.
func EncodeCursor(doc bson.M, orderBy bson.D) (string, error) {
	values := make([]any, len(orderBy))
	for i, e := range orderBy {
		values[i] = cursorValue(lookupPath(doc, e.Key))
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// decodeCursor reverses EncodeCursor and validates the value count against
// the order definition.
func decodeCursor(s string, orderBy bson.D) ([]any, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	var values []any
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	if len(values) != len(orderBy) {
		return nil, ErrCursorMismatch
	}
	return values, nil
}

// cursorValue converts store-native values into JSON-encodable ones.
func cursorValue(v any) any {
	if id, ok := v.(bson.ObjectID); ok {
		return id.Hex()
	}
	return v
}

// lookupPath resolves a possibly dotted field path within a document.
func lookupPath(doc bson.M, path string) any {
	cur := any(doc)
	for _, seg := range strings.Split(path, ".") {
		m, ok := asDocument(cur)
		if !ok {
			return nil
		}
		cur = m[seg]
	}
	return cur
}

// seekFilter builds the strict tuple comparison selecting rows ordered after
// the cursor position (or before it, when before is set) under the given
// ordering: an $or over progressively longer equality prefixes, with the last
// field of each branch compared exclusively in its direction.
func seekFilter(orderBy bson.D, values []any, before bool) (bson.M, error) {
	if len(orderBy) == 0 || len(values) != len(orderBy) {
		return nil, ErrCursorMismatch
	}
	branches := make(bson.A, 0, len(orderBy))
	for i := range orderBy {
		branch := make(bson.M, i+1)
		for j := 0; j < i; j++ {
			branch[orderBy[j].Key] = values[j]
		}
		branch[orderBy[i].Key] = bson.M{comparison(orderBy[i].Value, before): values[i]}
		branches = append(branches, branch)
	}
	if len(branches) == 1 {
		return branches[0].(bson.M), nil
	}
	return bson.M{opOr: branches}, nil
}

// comparison picks the exclusive comparison operator for one ordered field.
func comparison(direction any, before bool) string {
	asc := sortAscending(direction)
	if before {
		asc = !asc
	}
	if asc {
		return "$gt"
	}
	return "$lt"
}

// sortAscending interprets a sort direction value: positive numbers and "asc"
// ascend, negative numbers and "desc" descend.
func sortAscending(direction any) bool {
	switch d := direction.(type) {
	case int:
		return d >= 0
	case int32:
		return d >= 0
	case int64:
		return d >= 0
	case float64:
		return d >= 0
	case string:
		return !strings.EqualFold(d, "desc")
	default:
		return true
	}
}

// combineFilters conjoins two filters. When either side is empty the other is
// returned unchanged; otherwise both are wrapped in a logical AND group.
func combineFilters(a, b bson.M) bson.M {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	return bson.M{opAnd: bson.A{a, b}}
}

// reverseOrder flips every direction in an order definition. Used when paging
// backward so the store scans from the opposite end.
func reverseOrder(orderBy bson.D) bson.D {
	out := make(bson.D, len(orderBy))
	for i, e := range orderBy {
		dir := 1
		if sortAscending(e.Value) {
			dir = -1
		}
		out[i] = bson.E{Key: e.Key, Value: dir}
	}
	return out
}
