package catalog

import "supplymatch/internal"

// Index is a read-only view over one supplier's item list, keyed by the
// description sent to the matcher. When descriptions repeat, the first item
// in catalog order owns the description.
type Index struct {
	Items         []internal.Item
	Labels        []string
	ByDescription map[string]internal.Item
	Duplicates    []string
}

func BuildIndex(items []internal.Item) *Index {
	idx := &Index{
		Items:         items,
		Labels:        make([]string, 0, len(items)),
		ByDescription: make(map[string]internal.Item, len(items)),
	}
	for _, item := range items {
		idx.Labels = append(idx.Labels, item.Description)
		if _, exists := idx.ByDescription[item.Description]; exists {
			idx.Duplicates = append(idx.Duplicates, item.Description)
			continue
		}
		idx.ByDescription[item.Description] = item
	}
	return idx
}

// Lookup returns the item owning description, exact and case-sensitive.
func (idx *Index) Lookup(description string) (internal.Item, bool) {
	item, ok := idx.ByDescription[description]
	return item, ok
}

// SupplierNames returns supplier names in catalog order.
func SupplierNames(suppliers []internal.Supplier) []string {
	out := make([]string, 0, len(suppliers))
	for _, s := range suppliers {
		out = append(out, s.Name)
	}
	return out
}
