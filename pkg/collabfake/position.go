package collabfake

import (
	"fmt"
	"strings"

	"github.com/chessannotate/core/pkg/collab"
	"github.com/chessannotate/core/pkg/geom"
)

// Position is a minimal, geometry-only collab.Position fake: it parses a
// FEN placement into a piece map and answers attack/occupancy queries with
// plain ray/knight/pawn geometry, grounded on pkg/geom. It does not
// generate or validate moves -- Move always fails -- so it is only useful
// for tests that exercise theme detection and other read-only geometry
// against a fixed position, not for anything that mutates the board.
type Position struct {
	fen    string
	turn   geom.Color
	pieces map[geom.Square]collab.Piece
	legal  []string // canned legal moves, set via WithLegalMoves
}

// NewPosition parses a FEN string's piece-placement and active-color
// fields into a Position fake.
func NewPosition(fen string) (*Position, error) {
	fields := strings.Fields(fen)
	if len(fields) < 2 {
		return nil, fmt.Errorf("collabfake: invalid FEN %q", fen)
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
				return nil, fmt.Errorf("collabfake: invalid piece rune %q", r)
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
		return nil, fmt.Errorf("collabfake: invalid active color %q", fields[1])
	}

	return &Position{fen: fen, turn: turn, pieces: pieces}, nil
}

// WithLegalMoves returns a copy of p with a canned legal-move list, for
// tests that need GetLegalMoves to report specific UCI moves (e.g. to
// exercise discovered-attack or trapped-piece detection).
func (p *Position) WithLegalMoves(moves ...string) *Position {
	clone := *p
	clone.legal = moves
	return &clone
}

func (p *Position) FEN() string     { return p.fen }
func (p *Position) Turn() geom.Color { return p.turn }

func (p *Position) Move(move string) (collab.MoveResult, error) {
	return collab.MoveResult{}, &collab.ErrIllegalMove{Move: move}
}

func (p *Position) Clone() collab.Position {
	pieces := make(map[geom.Square]collab.Piece, len(p.pieces))
	for sq, pc := range p.pieces {
		pieces[sq] = pc
	}
	return &Position{fen: p.fen, turn: p.turn, pieces: pieces, legal: append([]string(nil), p.legal...)}
}

func (p *Position) IsLegalMove(move string) bool {
	for _, m := range p.legal {
		if m == move {
			return true
		}
	}
	return false
}

func (p *Position) GetLegalMoves() []string { return p.legal }

func (p *Position) IsCheck() bool     { return false }
func (p *Position) IsCheckmate() bool { return false }
func (p *Position) IsStalemate() bool { return false }
func (p *Position) IsGameOver() bool  { return false }

func (p *Position) GetPiece(sq geom.Square) (collab.Piece, bool) {
	pc, ok := p.pieces[sq]
	return pc, ok
}

func (p *Position) GetAllPieces() map[geom.Square]collab.Piece {
	out := make(map[geom.Square]collab.Piece, len(p.pieces))
	for sq, pc := range p.pieces {
		out[sq] = pc
	}
	return out
}

// GetAttackers walks every piece of color 'by' and reports whether its
// geometry reaches sq: pawns diagonally, knights/kings by offset,
// sliders along a clear ray.
func (p *Position) GetAttackers(sq geom.Square, by geom.Color) []geom.Square {
	var out []geom.Square
	for from, pc := range p.pieces {
		if pc.Color != by {
			continue
		}
		if p.attacks(from, pc.Kind, by, sq) {
			out = append(out, from)
		}
	}
	return out
}

func (p *Position) IsSquareAttacked(sq geom.Square, by geom.Color) bool {
	return len(p.GetAttackers(sq, by)) > 0
}

func (p *Position) attacks(from geom.Square, kind geom.Piece, color geom.Color, to geom.Square) bool {
	switch kind {
	case geom.Pawn:
		dr := 1
		if color == geom.Black {
			dr = -1
		}
		return to.Rank() == from.Rank()+dr && abs(to.File()-from.File()) == 1
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
				if _, occupied := p.pieces[cur]; occupied {
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

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func (p *Position) UCIToSAN(uci string) (string, error) { return uci, nil }
func (p *Position) SANToUCI(san string) (string, error) { return san, nil }
