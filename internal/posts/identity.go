package posts

import "slices"

// ResolveEditTargetID maps the nominal id reported by an edit to the durable
// id of the post file on disk: the inventory entry closest to nominal. The
// inventory is scanned in ascending order and the first minimum wins, so ties
// resolve to the lower id.
func ResolveEditTargetID(nominal int64, inventory []int64) (int64, error) {
	if len(inventory) == 0 {
		return 0, ErrEmptyInventory
	}

	sorted := slices.Clone(inventory)
	slices.Sort(sorted)

	best := sorted[0]
	bestDiff := distance(best, nominal)
	for _, id := range sorted[1:] {
		if diff := distance(id, nominal); diff < bestDiff {
			best, bestDiff = id, diff
		}
	}
	return best, nil
}

func distance(a, b int64) uint64 {
	if a > b {
		return uint64(a - b)
	}
	return uint64(b - a)
}
