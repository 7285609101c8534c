// Package oid provides identifier normalization for MongoDB documents.
package oid

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

// hexLen is the canonical length of a hex-encoded ObjectID.
const hexLen = 24

// Normalize converts string identifiers to native bson.ObjectID values,
// recursively over arrays and nested documents. Already-native identifiers
// and non-identifier values pass through unchanged, so the function is
// idempotent.
func Normalize(v any) any {
	switch val := v.(type) {
	case bson.ObjectID:
		return val
	case string:
		if !isHex(val) {
			return val
		}
		id, err := bson.ObjectIDFromHex(val)
		if err != nil {
			return val
		}
		return id
	case bson.A:
		out := make(bson.A, len(val))
		for i, item := range val {
			out[i] = Normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Normalize(item)
		}
		return out
	case bson.M:
		out := make(bson.M, len(val))
		for k, item := range val {
			out[k] = Normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Normalize(item)
		}
		return out
	case bson.D:
		out := make(bson.D, len(val))
		for i, elem := range val {
			out[i] = bson.E{Key: elem.Key, Value: Normalize(elem.Value)}
		}
		return out
	default:
		return v
	}
}

// isHex reports whether s is a 24-character lowercase-or-uppercase hex string.
func isHex(s string) bool {
	if len(s) != hexLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
