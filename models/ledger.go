package models

// TileStatus is the per-tile entry of a ledger snapshot
type TileStatus struct {
	Cleaned int `json:"cleaned"`
}

// Ledger counts how many times each floor tile has been occupied
type Ledger struct {
	counts  map[Position]int
	cleaned int
}

// NewLedger creates a ledger with a zero entry for every floor tile of g
func NewLedger(g *Grid) *Ledger {
	l := &Ledger{counts: make(map[Position]int)}
	for _, p := range g.FloorTiles() {
		l.counts[p] = 0
	}
	return l
}

// Visit increments the count for p. Untracked coordinates are ignored and report false.
func (l *Ledger) Visit(p Position) bool {
	n, ok := l.counts[p]
	if !ok {
		return false
	}
	if n == 0 {
		l.cleaned++
	}
	l.counts[p] = n + 1
	return true
}

// VisitCount returns the count for p, 0 if untracked
func (l *Ledger) VisitCount(p Position) int {
	return l.counts[p]
}

// Tracked reports whether p has a ledger entry
func (l *Ledger) Tracked(p Position) bool {
	_, ok := l.counts[p]
	return ok
}

// Coverage returns the number of visited tiles and the number of tracked tiles
func (l *Ledger) Coverage() (cleaned, total int) {
	return l.cleaned, len(l.counts)
}

// Complete reports whether every tracked tile has been visited
func (l *Ledger) Complete() bool {
	return l.cleaned == len(l.counts)
}

// Snapshot copies the ledger keyed by Position.Key
func (l *Ledger) Snapshot() map[string]TileStatus {
	out := make(map[string]TileStatus, len(l.counts))
	for p, n := range l.counts {
		out[p.Key()] = TileStatus{Cleaned: n}
	}
	return out
}
