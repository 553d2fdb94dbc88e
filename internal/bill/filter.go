package bill

// Filter returns the bills matching both predicates, in their original order.
// CategoryAll and StatusAll match everything. The input is never modified.
func Filter(bills []Bill, category Category, status Status) []Bill {
	out := make([]Bill, 0, len(bills))
	for _, b := range bills {
		if category != CategoryAll && b.Category != category {
			continue
		}
		if status != StatusAll && b.Status != status {
			continue
		}
		out = append(out, b)
	}
	return out
}

// CountByCategory tallies bills per category, for filter badges.
func CountByCategory(bills []Bill) map[Category]int {
	counts := make(map[Category]int, len(categoryLabels))
	for _, b := range bills {
		counts[b.Category]++
	}
	return counts
}
