package coresim

import (
	"log"
	"math/rand"

	"github.com/aqclab/ventana/rtio"
)

// An EdgeSource decides which rising edges a detection window observes.
type EdgeSource interface {
	// Edges returns the edge timestamps seen on ch in the window
	// (open, close], in increasing order.
	Edges(ch rtio.Channel, open, close rtio.TimeMu) []rtio.TimeMu
}

// NoEdges is an EdgeSource for a dark detector.
type NoEdges struct{}

// Edges returns no edges.
func (NoEdges) Edges(ch rtio.Channel, open, close rtio.TimeMu) []rtio.TimeMu {
	return nil
}

// A Script replays prearranged window outcomes. The k-th window opened on
// a channel observes the k-th outcome scripted for that channel; windows
// beyond the script stay quiet.
type Script struct {
	windows map[rtio.Channel][][]rtio.TimeMu
	next    map[rtio.Channel]int
}

// NewScript creates an empty script.
func NewScript() *Script {
	return &Script{
		windows: make(map[rtio.Channel][][]rtio.TimeMu),
		next:    make(map[rtio.Channel]int),
	}
}

// Window appends one window outcome for ch. Offsets count from the window
// open; no offsets scripts a quiet window.
func (s *Script) Window(ch rtio.Channel, offsets ...rtio.TimeMu) *Script {
	s.windows[ch] = append(s.windows[ch], offsets)
	return s
}

// QuietWindows appends n quiet windows for ch.
func (s *Script) QuietWindows(ch rtio.Channel, n int) *Script {
	for i := 0; i < n; i++ {
		s.Window(ch)
	}
	return s
}

// Edges consumes the next scripted outcome for ch.
func (s *Script) Edges(ch rtio.Channel, open, close rtio.TimeMu) []rtio.TimeMu {
	k := s.next[ch]
	s.next[ch] = k + 1
	if k >= len(s.windows[ch]) {
		return nil
	}

	edges := make([]rtio.TimeMu, 0, len(s.windows[ch][k]))
	for _, off := range s.windows[ch][k] {
		at := open + off
		if off <= 0 || at > close {
			log.Panic("scripted edge falls outside its window")
		}
		edges = append(edges, at)
	}
	return edges
}

// A Bernoulli source gives every window an independent chance of one edge
// at a seeded uniform position in the window.
type Bernoulli struct {
	p   float64
	rng *rand.Rand
}

// NewBernoulli creates a source with per-window edge probability p.
func NewBernoulli(p float64, seed int64) *Bernoulli {
	if p < 0 || p > 1 {
		log.Panic("probability out of range")
	}
	return &Bernoulli{p: p, rng: rand.New(rand.NewSource(seed))}
}

// Edges flips the window's coin.
func (b *Bernoulli) Edges(ch rtio.Channel, open, close rtio.TimeMu) []rtio.TimeMu {
	if b.rng.Float64() >= b.p {
		return nil
	}
	return []rtio.TimeMu{open + 1 + rtio.TimeMu(b.rng.Int63n(int64(close-open)))}
}
