// Package queue holds the crawl frontier.
package queue

import "sync"

// Frontier is a deduplicating set of URLs waiting to be fetched.
// Membership is by exact string identity. Pop order is unspecified (LIFO in practice).
type Frontier struct {
	mu      sync.Mutex
	stack   []string
	members map[string]struct{}
}

// NewFrontier creates an empty Frontier, optionally seeded with urls
func NewFrontier(urls ...string) *Frontier {
	f := &Frontier{members: make(map[string]struct{})}
	for _, u := range urls {
		f.Add(u)
	}
	return f
}

// Add inserts url; returns false if it was already present
func (f *Frontier) Add(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.members[url]; exists {
		return false
	}
	f.members[url] = struct{}{}
	f.stack = append(f.stack, url)
	return true
}

// Pop removes and returns an element; ok is false when the frontier is empty
func (f *Frontier) Pop() (url string, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := len(f.stack)
	if n == 0 {
		return "", false
	}
	url = f.stack[n-1]
	f.stack[n-1] = "" // release the string for GC
	f.stack = f.stack[:n-1]
	delete(f.members, url)
	return url, true
}

// Contains reports whether url is waiting in the frontier
func (f *Frontier) Contains(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.members[url]
	return ok
}

// Len returns the number of waiting URLs
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stack)
}
