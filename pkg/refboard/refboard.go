// Package refboard is a minimal, self-contained reference implementation of
// the external collaborators declared in pkg/collab -- Position, Engine and
// PGNModule -- so that cmd/annotate can run standalone without a separate
// production rules/search/PGN module plugged in. It generates pseudo-legal
// moves over pkg/geom (the same typed square/ray primitives pkg/theme and
// pkg/collabfake already use) and filters them by a own-king-safety check,
// the same ray-walk shape as pkg/collabfake's attacks() helper, generalized
// from a read-only query into full move application.
//
// It deliberately does not implement castling, en passant or any draw rule
// beyond checkmate/stalemate detection: a caller that needs full rules
// fidelity should supply its own collab.Position/Engine/PGNModule instead.
// Position.Move returns *collab.ErrIllegalMove for castling notation.
package refboard

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/chessannotate/core/pkg/collab"
	"github.com/chessannotate/core/pkg/geom"
)

// board is the shared, mutable-by-copy position representation behind both
// the Position and PGN collaborators in this package.
type board struct {
	pieces   map[geom.Square]collab.Piece
	turn     geom.Color
	halfmove int
	fullmove int
}

func decodeFEN(fen string) (*board, error) {
	fields := strings.Fields(fen)
	if len(fields) < 2 {
		return nil, fmt.Errorf("refboard: invalid fen %q", fen)
	}

	pieces := map[geom.Square]collab.Piece{}
	rank := 7
	file := 0
	for _, r := range fields[0] {
		switch {
		case r == '/':
			rank--
			file = 0
		case r >= '1' && r <= '8':
			file += int(r - '0')
		default:
			kind, ok := geom.ParsePiece(r)
			if !ok {
				return nil, fmt.Errorf("refboard: invalid piece rune %q in fen %q", r, fen)
			}
			color := geom.White
			if r >= 'a' && r <= 'z' {
				color = geom.Black
			}
			pieces[geom.NewSquare(file, rank)] = collab.Piece{Color: color, Kind: kind}
			file++
		}
	}

	turn, ok := geom.ParseColor(fields[1])
	if !ok {
		return nil, fmt.Errorf("refboard: invalid active color %q in fen %q", fields[1], fen)
	}

	halfmove, fullmove := 0, 1
	if len(fields) >= 5 {
		halfmove, _ = strconv.Atoi(fields[4])
	}
	if len(fields) >= 6 {
		if v, err := strconv.Atoi(fields[5]); err == nil && v > 0 {
			fullmove = v
		}
	}

	return &board{pieces: pieces, turn: turn, halfmove: halfmove, fullmove: fullmove}, nil
}

// encodeFEN renders the position. Castling and en passant fields are always
// "-" since this package does not track them.
func (b *board) encodeFEN() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			pc, ok := b.pieces[geom.NewSquare(file, rank)]
			if !ok {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			letter := pc.Kind.String()
			if pc.Color == geom.White {
				sb.WriteString(strings.ToUpper(letter))
			} else {
				sb.WriteString(strings.ToLower(letter))
			}
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteRune('/')
		}
	}
	return fmt.Sprintf("%v %v - - %v %v", sb.String(), b.turn, b.halfmove, b.fullmove)
}

func (b *board) clone() *board {
	pieces := make(map[geom.Square]collab.Piece, len(b.pieces))
	for sq, pc := range b.pieces {
		pieces[sq] = pc
	}
	return &board{pieces: pieces, turn: b.turn, halfmove: b.halfmove, fullmove: b.fullmove}
}

func (b *board) kingSquare(c geom.Color) (geom.Square, bool) {
	for sq, pc := range b.pieces {
		if pc.Color == c && pc.Kind == geom.King {
			return sq, true
		}
	}
	return geom.NoSquare, false
}

// isSquareAttacked walks every piece of color by and tests whether its
// geometry reaches sq: pawns diagonally, knights/kings by offset, sliders
// along a clear ray. Adapted from pkg/collabfake's read-only attacks()
// helper, generalized to the move-applying board here.
func (b *board) isSquareAttacked(sq geom.Square, by geom.Color) bool {
	for from, pc := range b.pieces {
		if pc.Color != by {
			continue
		}
		if b.attacks(from, pc.Kind, by, sq) {
			return true
		}
	}
	return false
}

func (b *board) attacks(from geom.Square, kind geom.Piece, color geom.Color, to geom.Square) bool {
	switch kind {
	case geom.Pawn:
		dr := 1
		if color == geom.Black {
			dr = -1
		}
		return to.Rank() == from.Rank()+dr && absInt(to.File()-from.File()) == 1
	case geom.Knight:
		for _, t := range geom.KnightTargets(from) {
			if t == to {
				return true
			}
		}
		return false
	case geom.King:
		for _, t := range geom.KingTargets(from) {
			if t == to {
				return true
			}
		}
		return false
	case geom.Bishop, geom.Rook, geom.Queen:
		dirs := geom.DiagonalDirections
		if kind == geom.Rook {
			dirs = geom.OrthogonalDirections
		} else if kind == geom.Queen {
			dirs = geom.AllDirections
		}
		for _, d := range dirs {
			found := false
			geom.Ray(from, d, func(cur geom.Square) bool {
				if cur == to {
					found = true
					return false
				}
				if _, occupied := b.pieces[cur]; occupied {
					return false
				}
				return true
			})
			if found {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// genMove is one pseudo-legal move over the board's geometry.
type genMove struct {
	From, To  geom.Square
	Piece     geom.Piece
	Capture   bool
	Promotion geom.Piece // geom.NoPiece if none
}

var promotionPieces = []geom.Piece{geom.Queen, geom.Rook, geom.Bishop, geom.Knight}

func isPromotionRank(c geom.Color, sq geom.Square) bool {
	if c == geom.White {
		return sq.Rank() == 7
	}
	return sq.Rank() == 0
}

// pseudoLegalMoves generates every geometrically valid move for c, without
// filtering for own-king safety. Castling and en passant are not generated.
func (b *board) pseudoLegalMoves(c geom.Color) []genMove {
	var out []genMove
	for sq, pc := range b.pieces {
		if pc.Color != c {
			continue
		}
		switch pc.Kind {
		case geom.Pawn:
			out = append(out, b.pawnMoves(sq, c)...)
		case geom.Knight:
			for _, to := range geom.KnightTargets(sq) {
				out = append(out, b.stepMove(sq, to, pc.Kind, c)...)
			}
		case geom.King:
			for _, to := range geom.KingTargets(sq) {
				out = append(out, b.stepMove(sq, to, pc.Kind, c)...)
			}
		case geom.Bishop, geom.Rook, geom.Queen:
			dirs := geom.DiagonalDirections
			if pc.Kind == geom.Rook {
				dirs = geom.OrthogonalDirections
			} else if pc.Kind == geom.Queen {
				dirs = geom.AllDirections
			}
			for _, d := range dirs {
				geom.Ray(sq, d, func(to geom.Square) bool {
					if occ, ok := b.pieces[to]; ok {
						if occ.Color != c {
							out = append(out, genMove{From: sq, To: to, Piece: pc.Kind, Capture: true})
						}
						return false
					}
					out = append(out, genMove{From: sq, To: to, Piece: pc.Kind})
					return true
				})
			}
		}
	}
	return out
}

func (b *board) stepMove(from, to geom.Square, kind geom.Piece, c geom.Color) []genMove {
	if occ, ok := b.pieces[to]; ok {
		if occ.Color == c {
			return nil
		}
		return []genMove{{From: from, To: to, Piece: kind, Capture: true}}
	}
	return []genMove{{From: from, To: to, Piece: kind}}
}

func (b *board) pawnMoves(sq geom.Square, c geom.Color) []genMove {
	var out []genMove
	dir, startRank := 1, 1
	if c == geom.Black {
		dir, startRank = -1, 6
	}

	one := geom.NewSquare(sq.File(), sq.Rank()+dir)
	if one.IsValid() {
		if _, occ := b.pieces[one]; !occ {
			out = append(out, b.withPromotions(genMove{From: sq, To: one, Piece: geom.Pawn}, c)...)

			if sq.Rank() == startRank {
				two := geom.NewSquare(sq.File(), sq.Rank()+2*dir)
				if _, occ2 := b.pieces[two]; !occ2 {
					out = append(out, genMove{From: sq, To: two, Piece: geom.Pawn})
				}
			}
		}
	}

	for _, df := range []int{-1, 1} {
		file := sq.File() + df
		if file < 0 || file > 7 {
			continue
		}
		to := geom.NewSquare(file, sq.Rank()+dir)
		if !to.IsValid() {
			continue
		}
		if occ, ok := b.pieces[to]; ok && occ.Color != c {
			out = append(out, b.withPromotions(genMove{From: sq, To: to, Piece: geom.Pawn, Capture: true}, c)...)
		}
	}
	return out
}

func (b *board) withPromotions(m genMove, c geom.Color) []genMove {
	if !isPromotionRank(c, m.To) {
		return []genMove{m}
	}
	out := make([]genMove, 0, len(promotionPieces))
	for _, p := range promotionPieces {
		promo := m
		promo.Promotion = p
		out = append(out, promo)
	}
	return out
}

// legalMoves filters pseudoLegalMoves by own-king safety: a move is legal
// only if, after applying it, the mover's own king is not attacked.
func (b *board) legalMoves(c geom.Color) []genMove {
	pseudo := b.pseudoLegalMoves(c)
	out := make([]genMove, 0, len(pseudo))
	for _, m := range pseudo {
		next := b.apply(m)
		if king, ok := next.kingSquare(c); ok && next.isSquareAttacked(king, c.Opponent()) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// apply returns a new board with m played. Does not validate legality.
func (b *board) apply(m genMove) *board {
	next := b.clone()

	pc := next.pieces[m.From]
	delete(next.pieces, m.From)
	if m.Promotion != geom.NoPiece {
		pc.Kind = m.Promotion
	}
	next.pieces[m.To] = pc

	if m.Piece == geom.Pawn || m.Capture {
		next.halfmove = 0
	} else {
		next.halfmove++
	}
	if next.turn == geom.Black {
		next.fullmove++
	}
	next.turn = next.turn.Opponent()
	return next
}

func isCheckmate(b *board) bool {
	king, ok := b.kingSquare(b.turn)
	if !ok {
		return false
	}
	return b.isSquareAttacked(king, b.turn.Opponent()) && len(b.legalMoves(b.turn)) == 0
}

func isStalemate(b *board) bool {
	king, ok := b.kingSquare(b.turn)
	if !ok {
		return false
	}
	return !b.isSquareAttacked(king, b.turn.Opponent()) && len(b.legalMoves(b.turn)) == 0
}
