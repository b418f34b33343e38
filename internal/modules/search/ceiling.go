package search

// memoryShare is the fraction of available memory a single search may claim.
const memoryShare = 4

// BytesPerCandidate estimates the statistics memory held for one candidate: the
// split weights, four float64 metrics and a slice header.
func BytesPerCandidate(fundCount int) uint64 {
	return uint64(fundCount+4)*8 + 24
}

// CeilingFromMemory derives a candidate ceiling from available memory, allowing a
// search to use a quarter of it. It never returns less than one candidate.
func CeilingFromMemory(available uint64, fundCount int) int {
	ceiling := available / memoryShare / BytesPerCandidate(fundCount)
	if ceiling < 1 {
		return 1
	}
	const maxInt = int(^uint(0) >> 1)
	if ceiling > uint64(maxInt) {
		return maxInt
	}
	return int(ceiling)
}
