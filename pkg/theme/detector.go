// Package theme implements board-geometry theme recognition: tactical
// motifs (pins, forks, skewers, discoveries, batteries, ...) and positional
// motifs (passed/isolated/doubled pawns, outposts, ...), tiered by
// exploration depth. Detectors walk rays over the external position
// collaborator using pkg/geom's typed squares/directions rather than
// re-implementing move generation, keeping hot geometry paths typed while
// leaving legality to the position module.
//
// Grounded on github.com/herohde/morlock's pkg/eval/pins.go for the
// per-friendly-sliding-piece ray-walk shape (walk each direction, stop at
// the first occupied square, reason about what's behind it), generalized
// from a single detector into the full theme catalog.
package theme

import (
	"fmt"
	"sort"

	"github.com/chessannotate/core/pkg/artifact"
	"github.com/chessannotate/core/pkg/collab"
	"github.com/chessannotate/core/pkg/geom"
)

// DetectorVersion is bumped whenever detection logic changes meaningfully.
const DetectorVersion = "theme-v1"

// Detect runs every detector appropriate for the given tier against pos,
// for the side to move's perspective (themes are reported for whichever
// side benefits, not just the mover), and returns the deduplicated set.
func Detect(pos collab.Position, tier artifact.Tier) []artifact.DetectedTheme {
	var out []artifact.DetectedTheme
	b := newBoardView(pos)

	// shallow: pins, forks, hanging pieces, passed pawns
	out = append(out, detectPins(b)...)
	out = append(out, detectForks(b)...)
	out = append(out, detectHanging(b)...)
	out = append(out, detectPassedPawns(b)...)

	if tier >= artifact.Standard {
		out = append(out, detectSkewers(b)...)
		out = append(out, detectDiscoveries(b)...)
		out = append(out, detectBatteries(b)...)
		out = append(out, detectBackRank(b)...)
		out = append(out, detectDoubleCheck(b)...)
	}

	if tier >= artifact.Full {
		out = append(out, detectXRays(b)...)
		out = append(out, detectKingSafety(b)...)
		out = append(out, detectTrappedAndDomination(b)...)
		out = append(out, detectIsolatedDoubledBackward(b)...)
		out = append(out, detectFileControl(b)...)
		out = append(out, detectOutposts(b)...)
		out = append(out, detectSpaceAndDevelopment(b)...)
	}

	return dedupe(out)
}

func dedupe(themes []artifact.DetectedTheme) []artifact.DetectedTheme {
	seen := map[string]bool{}
	var out []artifact.DetectedTheme
	for _, t := range themes {
		k := t.DedupeKey()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, t)
	}
	return out
}

// boardView caches a snapshot of piece placement for the duration of one
// Detect call, so detectors don't each re-query the position collaborator
// for the same data.
type boardView struct {
	pos    collab.Position
	pieces map[geom.Square]collab.Piece
	turn   geom.Color
}

func newBoardView(pos collab.Position) *boardView {
	return &boardView{
		pos:    pos,
		pieces: pos.GetAllPieces(),
		turn:   pos.Turn(),
	}
}

func (b *boardView) at(sq geom.Square) (collab.Piece, bool) {
	p, ok := b.pieces[sq]
	return p, ok
}

func (b *boardView) squaresOf(color geom.Color, kind geom.Piece) []geom.Square {
	var out []geom.Square
	for sq, p := range b.pieces {
		if p.Color == color && p.Kind == kind {
			out = append(out, sq)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (b *boardView) kingSquare(color geom.Color) (geom.Square, bool) {
	sqs := b.squaresOf(color, geom.King)
	if len(sqs) == 0 {
		return geom.NoSquare, false
	}
	return sqs[0], true
}

// firstOnRay returns the first occupied square (and its piece) along
// direction d from sq, or ok=false if the ray runs off the board empty.
func (b *boardView) firstOnRay(sq geom.Square, d geom.Direction) (geom.Square, collab.Piece, bool) {
	var found geom.Square
	var piece collab.Piece
	ok := false
	geom.Ray(sq, d, func(cur geom.Square) bool {
		if p, occupied := b.at(cur); occupied {
			found, piece, ok = cur, p, true
			return false
		}
		return true
	})
	return found, piece, ok
}

// secondOnRay returns the second occupied square along direction d from sq
// (i.e. the first occupied square strictly beyond 'after').
func (b *boardView) secondOnRay(after geom.Square, d geom.Direction) (geom.Square, collab.Piece, bool) {
	return b.firstOnRay(after, d)
}

func sqStrings(sqs ...geom.Square) []string {
	out := make([]string, len(sqs))
	for i, s := range sqs {
		out[i] = s.String()
	}
	return out
}

func beneficiaryOf(c geom.Color) string { return c.String() }

func fmtExplain(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}
