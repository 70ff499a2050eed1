package shared

const (
	// DefaultPageLimit applies when a listing request omits the limit.
	DefaultPageLimit = 20
	// MaxPageLimit caps a single listing page.
	MaxPageLimit = 200
)

// Page carries limit/offset windowing for listings.
type Page struct {
	Limit  int
	Offset int
}

// NewPage clamps the requested window to sane bounds.
func NewPage(limit, offset int) Page {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Page{Limit: limit, Offset: offset}
}
