package refboard

import (
	"github.com/chessannotate/core/pkg/collab"
	"github.com/chessannotate/core/pkg/geom"
)

// Position is a collab.Position backed by the package's own move generator.
// It does not support castling or en passant; see the package doc comment.
type Position struct {
	b *board
}

var _ collab.Position = (*Position)(nil)

// NewPosition matches collab.NewPositionFunc. An empty fen decodes the
// standard starting position.
func NewPosition(fen string) (collab.Position, error) {
	if fen == "" {
		fen = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	}
	b, err := decodeFEN(fen)
	if err != nil {
		return nil, err
	}
	return &Position{b: b}, nil
}

func (p *Position) FEN() string      { return p.b.encodeFEN() }
func (p *Position) Turn() geom.Color { return p.b.turn }

func (p *Position) Move(move string) (collab.MoveResult, error) {
	m, ok := findMove(p.b, move)
	if !ok {
		return collab.MoveResult{}, &collab.ErrIllegalMove{Move: move}
	}
	before := p.b.encodeFEN()
	s := san(p.b, m)
	p.b = p.b.apply(m)
	return collab.MoveResult{SAN: s, FENBefore: before, FENAfter: p.b.encodeFEN()}, nil
}

func (p *Position) Clone() collab.Position {
	return &Position{b: p.b.clone()}
}

func (p *Position) IsLegalMove(move string) bool {
	_, ok := findMove(p.b, move)
	return ok
}

func (p *Position) GetLegalMoves() []string {
	legal := p.b.legalMoves(p.b.turn)
	out := make([]string, 0, len(legal))
	for _, m := range legal {
		out = append(out, uci(m))
	}
	return out
}

func (p *Position) IsCheck() bool {
	king, ok := p.b.kingSquare(p.b.turn)
	return ok && p.b.isSquareAttacked(king, p.b.turn.Opponent())
}

func (p *Position) IsCheckmate() bool { return isCheckmate(p.b) }
func (p *Position) IsStalemate() bool { return isStalemate(p.b) }
func (p *Position) IsGameOver() bool  { return p.IsCheckmate() || p.IsStalemate() }

func (p *Position) GetPiece(sq geom.Square) (collab.Piece, bool) {
	pc, ok := p.b.pieces[sq]
	return pc, ok
}

func (p *Position) GetAllPieces() map[geom.Square]collab.Piece {
	out := make(map[geom.Square]collab.Piece, len(p.b.pieces))
	for sq, pc := range p.b.pieces {
		out[sq] = pc
	}
	return out
}

func (p *Position) GetAttackers(sq geom.Square, by geom.Color) []geom.Square {
	var out []geom.Square
	for from, pc := range p.b.pieces {
		if pc.Color != by {
			continue
		}
		if p.b.attacks(from, pc.Kind, by, sq) {
			out = append(out, from)
		}
	}
	return out
}

func (p *Position) IsSquareAttacked(sq geom.Square, by geom.Color) bool {
	return p.b.isSquareAttacked(sq, by)
}

func (p *Position) UCIToSAN(u string) (string, error) {
	m, ok := findMove(p.b, u)
	if !ok {
		return "", &collab.ErrIllegalMove{Move: u}
	}
	return san(p.b, m), nil
}

func (p *Position) SANToUCI(s string) (string, error) {
	m, ok := findMove(p.b, s)
	if !ok {
		return "", &collab.ErrIllegalMove{Move: s}
	}
	return uci(m), nil
}
