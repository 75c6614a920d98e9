package crawl

import (
	"container/heap"
	"sync"

	"github.com/fwojciec/docextract"
	"github.com/fwojciec/docextract/bloom"
)

// Compile-time interface verification.
var _ docextract.URLFrontier = (*Frontier)(nil)

// Frontier is an in-memory URL frontier with a score-ordered priority queue
// and Bloom filter deduplication. It is safe for concurrent use.
type Frontier struct {
	mu    sync.Mutex
	seen  *bloom.Filter
	queue *linkHeap
}

// NewFrontier creates a Frontier sized for n expected URLs with the given
// false positive rate for deduplication.
func NewFrontier(n uint, fpRate float64) *Frontier {
	h := &linkHeap{}
	heap.Init(h)
	return &Frontier{
		seen:  bloom.NewFilter(n, fpRate),
		queue: h,
	}
}

// Push adds a link to the frontier. The URL is normalized first; URLs that
// differ only in fragment or host casing are considered duplicates.
// Returns false if the URL has already been seen or cannot be normalized.
func (f *Frontier) Push(link docextract.DiscoveredLink) bool {
	normalized, err := NormalizeURL(link.URL)
	if err != nil {
		return false
	}
	link.URL = normalized

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.seen.Test(link.URL) {
		return false
	}
	f.seen.Add(link.URL)

	heap.Push(f.queue, link)
	return true
}

// Pop returns the highest-scoring link; ties resolve to the earliest
// discovered. The bool result is false if the frontier is empty.
func (f *Frontier) Pop() (docextract.DiscoveredLink, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.queue.Len() == 0 {
		return docextract.DiscoveredLink{}, false
	}
	link, _ := heap.Pop(f.queue).(docextract.DiscoveredLink)
	return link, true
}

// Len returns the number of URLs in the queue.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queue.Len()
}

// Seen returns true if the URL has been queued or processed.
func (f *Frontier) Seen(rawURL string) bool {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen.Test(normalized)
}

// linkHeap implements heap.Interface for the frontier queue.
// Higher scores pop first; equal scores pop in discovery order.
type linkHeap []docextract.DiscoveredLink

func (h linkHeap) Len() int { return len(h) }

func (h linkHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score > h[j].Score
	}
	return h[i].Seq < h[j].Seq
}

func (h linkHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *linkHeap) Push(x any) {
	link, _ := x.(docextract.DiscoveredLink)
	*h = append(*h, link)
}

func (h *linkHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}
