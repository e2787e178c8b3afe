// Package tolerance holds the drainage-area tolerance table used to decide
// whether a segment's upstream area matches a catchment closely enough.
package tolerance

// Bin is a half-open area interval [Lower, Upper) with the largest
// relative error (percent) accepted inside it.
type Bin struct {
	Lower       float64
	Upper       float64
	MaxErrorPct float64
}

// Table lists the bins in ascending area order. Larger basins tolerate
// smaller relative errors.
var Table = []Bin{
	{0, 1500, 30},
	{1500, 3000, 25},
	{3000, 5000, 20},
	{5000, 10000, 15},
	{10000, 20000, 10},
	{20000, 50000, 7},
	{50000, 200000, 5},
	{200000, 500000, 3},
	{500000, 1000000, 2},
	{1000000, 6000000, 1.5},
}

// Lookup returns the bin containing area. Areas outside [0, 6e6) match no bin.
func Lookup(area float64) (Bin, bool) {
	for _, b := range Table {
		if area >= b.Lower && area < b.Upper {
			return b, true
		}
	}
	return Bin{}, false
}

// Accept reports whether relErrPct is strictly below the threshold of the
// bin containing area. An area outside every bin is rejected.
func Accept(relErrPct, area float64) bool {
	b, ok := Lookup(area)
	if !ok {
		return false
	}
	return relErrPct < b.MaxErrorPct
}
