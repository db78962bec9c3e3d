package tracepipe

// PageShift is the shift width of a 4096-byte page. Page size is fixed
// throughout the pipeline.
const PageShift = 12

// PageSize is 1 << PageShift.
const PageSize = 1 << PageShift

// PageRange is a half-open range [Start, End) of 4096-byte page indices.
type PageRange struct {
	Start int64
	End   int64
}

// touches reports whether a and b overlap or share a boundary, i.e. it is
// false only when there is a gap of at least one page between them.
func touches(a, b PageRange) bool {
	return !(a.End < b.Start || b.End < a.Start)
}

// union returns the smallest range covering both a and b. Callers must
// have already established that a and b touch or overlap.
func union(a, b PageRange) PageRange {
	r := PageRange{Start: a.Start, End: a.End}
	if b.Start < r.Start {
		r.Start = b.Start
	}
	if b.End > r.End {
		r.End = b.End
	}
	return r
}
