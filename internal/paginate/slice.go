package paginate

// PageSlice is the horizontal strip of the bitmap shown on one page.
type PageSlice struct {
	PageNumber int // 1-based
	SourceY    int // first bitmap row
	HeightPx   int
}

// Slice cuts a bitmap of heightPx rows into strips of at most bandPx rows.
// It always returns at least one slice; slices are contiguous, in order, and
// their heights sum to heightPx.
func Slice(heightPx, bandPx int) []PageSlice {
	if heightPx < 0 {
		heightPx = 0
	}
	if bandPx < 1 {
		bandPx = 1
	}

	pages := (heightPx + bandPx - 1) / bandPx
	if pages < 1 {
		pages = 1
	}

	slices := make([]PageSlice, 0, pages)
	remaining := heightPx
	for n := 1; n <= pages; n++ {
		h := min(bandPx, remaining)
		slices = append(slices, PageSlice{
			PageNumber: n,
			SourceY:    heightPx - remaining,
			HeightPx:   h,
		})
		remaining -= h
	}
	return slices
}
