package frontier

import "sort"

// point is a (volatility, return) coordinate tagged with the candidate index it
// came from. The index travels through the hull so vertices never need to be
// matched back to candidates by float comparison.
type point struct {
	x, y  float64
	index int
}

func cross(o, a, b point) float64 {
	return (a.x-o.x)*(b.y-o.y) - (a.y-o.y)*(b.x-o.x)
}

// convexHull returns the hull vertices in counter-clockwise order starting from
// the point with the lowest x (lowest y on ties). Collinear boundary points are
// dropped. Coincident points collapse onto the one with the lowest index.
func convexHull(pts []point) []point {
	sorted := make([]point, len(pts))
	copy(sorted, pts)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.x != b.x {
			return a.x < b.x
		}
		if a.y != b.y {
			return a.y < b.y
		}
		return a.index < b.index
	})

	unique := sorted[:0]
	for _, p := range sorted {
		if n := len(unique); n > 0 && unique[n-1].x == p.x && unique[n-1].y == p.y {
			continue
		}
		unique = append(unique, p)
	}

	if len(unique) < 3 {
		return unique
	}

	hull := make([]point, 0, 2*len(unique))

	// Lower chain
	for _, p := range unique {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// Upper chain
	lowerLen := len(hull) + 1
	for i := len(unique) - 2; i >= 0; i-- {
		p := unique[i]
		for len(hull) >= lowerLen && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// Last point repeats the first
	return hull[:len(hull)-1]
}
