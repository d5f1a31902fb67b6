package models

// PageStatus represents the state of a URL in the crawl state machine
type PageStatus string

const (
	PageStatusUnset    PageStatus = ""          // Zero value = unset/unknown
	PageStatusPending  PageStatus = "pending"   // In the frontier, not yet fetched
	PageStatusVisiting PageStatus = "visiting"  // Marked visited, fetch in progress
	PageStatusVisited  PageStatus = "visited"   // Fetch attempt finished
	PageStatusNotFound PageStatus = "not_found" // URL not in the store
	PageStatusDBError  PageStatus = "db_error"  // Store lookup failed
)

// String implements fmt.Stringer for logging
func (s PageStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// IsValid returns true if the status is a known operational value
func (s PageStatus) IsValid() bool {
	switch s {
	case PageStatusPending, PageStatusVisiting, PageStatusVisited:
		return true
	}
	return false
}

// IsVisited reports whether a URL in this state has already consumed a fetch
func (s PageStatus) IsVisited() bool {
	return s == PageStatusVisiting || s == PageStatusVisited
}
