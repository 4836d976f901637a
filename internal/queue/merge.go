package queue

import "github.com/whatisboom/blendroom-sub001/internal/domain"

// Normalize reassigns position and stability across the whole queue:
// position becomes the item's index and the first stableZone items are
// stable, everything after is not. Every structural edit (add, remove,
// reorder, merge) must be followed by Normalize; nothing else assigns these
// fields. Normalizing an already normalized queue changes nothing.
func Normalize(items []domain.QueueItem, stableZone int) []domain.QueueItem {
	for i := range items {
		items[i].Position = i
		items[i].IsStable = i < stableZone
	}
	return items
}

// Merge appends newItems after the protected prefix and normalizes the
// result. The prefix keeps its order; a new item landing inside the stable
// zone becomes stable, and a prefix item pushed past it loses stability.
func Merge(stablePrefix, newItems []domain.QueueItem, stableZone int) []domain.QueueItem {
	merged := make([]domain.QueueItem, 0, len(stablePrefix)+len(newItems))
	merged = append(merged, stablePrefix...)
	merged = append(merged, newItems...)
	return Normalize(merged, stableZone)
}

// StablePrefix returns the leading stable-zone slice of the queue, at most
// stableZone items.
func StablePrefix(items []domain.QueueItem, stableZone int) []domain.QueueItem {
	if len(items) < stableZone {
		stableZone = len(items)
	}
	prefix := make([]domain.QueueItem, stableZone)
	copy(prefix, items[:stableZone])
	return prefix
}
