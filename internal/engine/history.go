package engine

import "alpha-sniper/internal/models"

// History is a bounded ring buffer of recent decisions feeding the
// adaptive threshold.
type History struct {
	entries []models.Decision
	next    int
	size    int
}

// NewHistory creates a history with the given capacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 1
	}
	return &History{entries: make([]models.Decision, capacity)}
}

// Append records a decision, evicting the oldest when full.
func (h *History) Append(d models.Decision) {
	h.entries[h.next] = d
	h.next = (h.next + 1) % len(h.entries)
	if h.size < len(h.entries) {
		h.size++
	}
}

// Len returns the number of recorded decisions.
func (h *History) Len() int {
	return h.size
}

// Last returns up to n most recent decisions, oldest first.
func (h *History) Last(n int) []models.Decision {
	if n > h.size {
		n = h.size
	}
	out := make([]models.Decision, 0, n)
	start := h.next - n
	for i := 0; i < n; i++ {
		idx := (start + i + len(h.entries)) % len(h.entries)
		out = append(out, h.entries[idx])
	}
	return out
}

// BuyRatio returns the fraction of buy decisions within the trailing
// window of at most n entries.
func (h *History) BuyRatio(n int) float64 {
	window := h.Last(n)
	if len(window) == 0 {
		return 0
	}
	buys := 0
	for _, d := range window {
		if d.Action == models.ActionBuy {
			buys++
		}
	}
	return float64(buys) / float64(len(window))
}
