package search

import "time"

// Stats is the search-statistics data model of spec §3. Unlike the
// teacher, which kept separate "nodes" and "nodesSearched" aliases,
// this carries exactly one node counter per the §9 redesign note.
type Stats struct {
	Nodes           uint64
	QuiescenceNodes uint64
	NodesByDepth    [MaxPly]uint64
	TTHits          uint64
	TTMisses        uint64
	BetaCutoffs     uint64
	Elapsed         time.Duration
}

// NodesPerSecond derives throughput from Nodes and Elapsed.
func (s *Stats) NodesPerSecond() uint64 {
	secs := s.Elapsed.Seconds()
	if secs <= 0 {
		return s.Nodes
	}
	return uint64(float64(s.Nodes) / secs)
}

// reset zeroes every counter for a new root search.
func (s *Stats) reset() {
	*s = Stats{}
}
