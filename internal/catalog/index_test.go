package catalog

import (
	"testing"

	"supplymatch/internal"
)

func TestBuildIndexFirstDescriptionWins(t *testing.T) {
	items := []internal.Item{
		{ID: "1", Supplier: "Acme Co", Description: "Dump Truck", Price: 100, Rate: 5},
		{ID: "2", Supplier: "Acme Co", Description: "Excavator", Price: 200, Rate: 8},
		{ID: "3", Supplier: "Acme Co", Description: "Dump Truck", Price: 120, Rate: 6},
	}
	idx := BuildIndex(items)

	if len(idx.Labels) != 3 {
		t.Fatalf("labels=%d", len(idx.Labels))
	}
	got, ok := idx.Lookup("Dump Truck")
	if !ok || got.ID != "1" {
		t.Fatalf("unexpected lookup: %+v ok=%v", got, ok)
	}
	if len(idx.Duplicates) != 1 || idx.Duplicates[0] != "Dump Truck" {
		t.Fatalf("duplicates=%v", idx.Duplicates)
	}
	if _, ok := idx.Lookup("dump truck"); ok {
		t.Fatal("lookup must be case-sensitive")
	}
}

func TestSupplierNames(t *testing.T) {
	names := SupplierNames([]internal.Supplier{{ID: "1", Name: "Acme Co"}, {ID: "2", Name: "Beta Ltd"}})
	if len(names) != 2 || names[0] != "Acme Co" || names[1] != "Beta Ltd" {
		t.Fatalf("names=%v", names)
	}
}
