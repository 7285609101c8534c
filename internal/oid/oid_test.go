package oid

import (
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const hexID = "507f1f77bcf86cd799439011"

func mustID(t *testing.T, hex string) bson.ObjectID {
	t.Helper()
	id, err := bson.ObjectIDFromHex(hex)
	if err != nil {
		t.Fatalf("invalid hex id %q: %v", hex, err)
	}
	return id
}

func TestNormalizeString(t *testing.T) {
	want := mustID(t, hexID)
	got := Normalize(hexID)
	if got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestNormalizePassthrough(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"non-hex string", "not-hex"},
		{"short hex", "507f1f77"},
		{"uppercase non-hex tail", "507f1f77bcf86cd79943901z"},
		{"int", 42},
		{"bool", true},
		{"nil", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.value)
			if !reflect.DeepEqual(got, tt.value) {
				t.Errorf("expected %v unchanged, got %v", tt.value, got)
			}
		})
	}
}

func TestNormalizeNativeIdentifier(t *testing.T) {
	id := mustID(t, hexID)
	if got := Normalize(id); got != id {
		t.Errorf("expected native id to pass through, got %v", got)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	once := Normalize(hexID)
	twice := Normalize(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("expected idempotence, got %v then %v", once, twice)
	}
}

func TestNormalizeArrayAndNested(t *testing.T) {
	id := mustID(t, hexID)

	got := Normalize([]any{hexID, map[string]any{"k": hexID}})
	want := []any{id, map[string]any{"k": id}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestNormalizeBsonShapes(t *testing.T) {
	id := mustID(t, hexID)

	tests := []struct {
		name  string
		value any
		want  any
	}{
		{"bson.A", bson.A{hexID, "plain"}, bson.A{id, "plain"}},
		{"bson.M", bson.M{"$in": bson.A{hexID}}, bson.M{"$in": bson.A{id}}},
		{"bson.D", bson.D{{Key: "ref", Value: hexID}}, bson.D{{Key: "ref", Value: id}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.value)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := bson.M{"k": hexID}
	Normalize(in)
	if in["k"] != hexID {
		t.Error("input document must not be mutated")
	}
}

func TestIsHex(t *testing.T) {
	tests := []struct {
		s        string
		expected bool
	}{
		{hexID, true},
		{"507F1F77BCF86CD799439011", true},
		{"507f1f77bcf86cd79943901", false},
		{"507f1f77bcf86cd7994390111", false},
		{"507f1f77bcf86cd79943901g", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := isHex(tt.s); got != tt.expected {
			t.Errorf("isHex(%q): expected %v, got %v", tt.s, tt.expected, got)
		}
	}
}
