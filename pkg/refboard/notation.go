package refboard

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/chessannotate/core/pkg/geom"
)

// san renders m against b (the position before m is played) in standard
// algebraic notation, including +/# suffix and disambiguation.
func san(b *board, m genMove) string {
	if m.Piece == geom.Pawn {
		return pawnSAN(b, m)
	}

	var sb strings.Builder
	sb.WriteString(m.Piece.String())
	sb.WriteString(disambiguate(b, m))
	if m.Capture {
		sb.WriteRune('x')
	}
	sb.WriteString(m.To.String())
	sb.WriteString(checkSuffix(b, m))
	return sb.String()
}

func pawnSAN(b *board, m genMove) string {
	var sb strings.Builder
	if m.Capture {
		sb.WriteString(string(rune('a' + m.From.File())))
		sb.WriteRune('x')
	}
	sb.WriteString(m.To.String())
	if m.Promotion != geom.NoPiece {
		sb.WriteRune('=')
		sb.WriteString(m.Promotion.String())
	}
	sb.WriteString(checkSuffix(b, m))
	return sb.String()
}

// disambiguate returns the file, rank, or full-square qualifier needed when
// another piece of the same kind and color could also reach m.To.
func disambiguate(b *board, m genMove) string {
	pc := b.pieces[m.From]
	sameFile, sameRank, ambiguous := false, false, false
	for _, other := range b.legalMoves(pc.Color) {
		if other.From == m.From || other.Piece != m.Piece || other.To != m.To {
			continue
		}
		ambiguous = true
		if other.From.File() == m.From.File() {
			sameFile = true
		}
		if other.From.Rank() == m.From.Rank() {
			sameRank = true
		}
	}
	switch {
	case !ambiguous:
		return ""
	case !sameFile:
		return string(rune('a' + m.From.File()))
	case !sameRank:
		return fmt.Sprintf("%d", m.From.Rank()+1)
	default:
		return m.From.String()
	}
}

func checkSuffix(b *board, m genMove) string {
	next := b.apply(m)
	king, ok := next.kingSquare(next.turn)
	if !ok || !next.isSquareAttacked(king, next.turn.Opponent()) {
		return ""
	}
	if len(next.legalMoves(next.turn)) == 0 {
		return "#"
	}
	return "+"
}

// uci renders m in long algebraic form, e.g. "e2e4" or "e7e8q".
func uci(m genMove) string {
	s := m.From.String() + m.To.String()
	if m.Promotion != geom.NoPiece {
		s += strings.ToLower(m.Promotion.String())
	}
	return s
}

var uciPattern = regexp.MustCompile(`^([a-h][1-8])([a-h][1-8])([qrbn]?)$`)

// findMove resolves a SAN or UCI token against b's legal moves for the side
// to move.
func findMove(b *board, token string) (genMove, bool) {
	legal := b.legalMoves(b.turn)

	if m := uciPattern.FindStringSubmatch(strings.ToLower(token)); m != nil {
		from, err1 := geom.ParseSquare(m[1])
		to, err2 := geom.ParseSquare(m[2])
		if err1 == nil && err2 == nil {
			wantPromo := geom.Queen
			if m[3] != "" {
				wantPromo, _ = geom.ParsePiece(rune(m[3][0]))
			}
			for _, cand := range legal {
				if cand.From != from || cand.To != to {
					continue
				}
				if cand.Promotion != geom.NoPiece && cand.Promotion != wantPromo {
					continue
				}
				return cand, true
			}
		}
	}

	clean := strings.TrimRight(token, "+#!?")
	for _, cand := range legal {
		if san(b, cand) == token || strings.TrimRight(san(b, cand), "+#") == clean {
			return cand, true
		}
	}
	return genMove{}, false
}
