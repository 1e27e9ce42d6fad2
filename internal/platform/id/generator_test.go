package id

import (
	"testing"

	"github.com/google/uuid"
)

func TestUUIDGenerator(t *testing.T) {
	t.Parallel()

	gen := NewUUIDGenerator()
	first, err := gen.NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	second, _ := gen.NewID()
	if first == second {
		t.Fatalf("ids should differ")
	}
	if _, err := uuid.Parse(first); err != nil {
		t.Fatalf("id should be a uuid: %v", err)
	}
}
