package storage

import (
	"sort"

	"github.com/getantonio/tokenhub/internal/issuance"
)

// SortByCreation orders issuances by CreatedAt, then ID.
func SortByCreation(list []*issuance.Instance) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt != list[j].CreatedAt {
			return list[i].CreatedAt < list[j].CreatedAt
		}
		return list[i].ID < list[j].ID
	})
}
