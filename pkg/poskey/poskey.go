// Package poskey computes position keys: a Zobrist hash paired with a
// normalized FEN, used throughout the analysis core to identify positions
// for caching, transposition-merging and artifact lookup.
//
// Grounded on github.com/herohde/morlock's pkg/board/zobrist.go (table
// construction and XOR-accumulation approach) and pkg/board/fen/fen.go
// (field-by-field FEN parsing), adapted to work directly off FEN text --
// this module never owns a mutable chess position, since that is delegated
// to the external position collaborator (pkg/collab).
package poskey

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chessannotate/core/pkg/geom"
)

// Key is a position key: the Zobrist hash of the position plus the
// normalized FEN that disambiguates hash collisions.
type Key struct {
	Zobrist    uint64
	NormFEN    string
}

// String renders the persisted/cross-process form: 16 lowercase hex chars,
// a colon, then the normalized FEN.
func (k Key) String() string {
	return fmt.Sprintf("%016x:%v", k.Zobrist, k.NormFEN)
}

// Equal reports whether two keys refer to the same position. Hash
// inequality is sufficient for "not equal"; hash equality is confirmed by
// comparing the normalized FEN to guard against collisions.
func Equal(a, b Key) bool {
	return a.Zobrist == b.Zobrist && a.NormFEN == b.NormFEN
}

// ErrInvalidFEN reports a structurally defective FEN string.
type ErrInvalidFEN struct {
	FEN    string
	Reason string
}

func (e *ErrInvalidFEN) Error() string {
	return fmt.Sprintf("invalid fen %q: %v", e.FEN, e.Reason)
}

// Normalize strips the halfmove and fullmove counters from a FEN, retaining
// the four canonical fields: board, turn, castling rights, en-passant
// target. Fails with *ErrInvalidFEN if fewer than four fields are present.
func Normalize(fen string) (string, error) {
	fields := strings.Fields(fen)
	if len(fields) < 4 {
		return "", &ErrInvalidFEN{FEN: fen, Reason: "fewer than 4 space-separated fields"}
	}
	return strings.Join(fields[:4], " "), nil
}

// castlingIndex enumerates the subset of "KQkq" present, in the fixed
// order K,Q,k,q -- a stable 4-bit index into the castling-rights table.
func castlingIndex(castling string) (int, error) {
	if castling == "-" {
		return 0, nil
	}
	idx := 0
	for _, r := range castling {
		switch r {
		case 'K':
			idx |= 1 << 0
		case 'Q':
			idx |= 1 << 1
		case 'k':
			idx |= 1 << 2
		case 'q':
			idx |= 1 << 3
		default:
			return 0, fmt.Errorf("invalid castling rights %q", castling)
		}
	}
	return idx, nil
}

// enPassantFile returns the 0..7 file index of an en-passant target, or -1
// if there is none ("-").
func enPassantFile(ep string) (int, error) {
	if ep == "-" {
		return -1, nil
	}
	sq, err := geom.ParseSquare(ep)
	if err != nil {
		return -1, fmt.Errorf("invalid en passant target %q: %w", ep, err)
	}
	return sq.File(), nil
}

// Compute derives the position Key for a FEN string, normalizing first.
func Compute(fen string) (Key, error) {
	norm, err := Normalize(fen)
	if err != nil {
		return Key{}, err
	}

	fields := strings.Fields(norm)
	board, turnStr, castling, ep := fields[0], fields[1], fields[2], fields[3]

	if turnStr != "w" && turnStr != "b" {
		return Key{}, &ErrInvalidFEN{FEN: fen, Reason: "active color must be w or b"}
	}

	var hash uint64

	sq := 56 // a8, per the standard FEN-to-square mapping: a8 -> square 56, a1 -> square 0.
	file := 0
	for _, r := range board {
		switch {
		case r == '/':
			sq -= 16
			file = 0
		case r >= '1' && r <= '8':
			n := int(r - '0')
			sq += n
			file += n
		case true:
			piece, ok := geom.ParsePiece(r)
			if !ok {
				return Key{}, &ErrInvalidFEN{FEN: fen, Reason: fmt.Sprintf("invalid piece char %q", r)}
			}
			color := geom.White
			if r >= 'a' && r <= 'z' {
				color = geom.Black
			}
			hash ^= pieceSquareTable[color][piece][sq]
			sq++
			file++
		}
		if file > 8 {
			return Key{}, &ErrInvalidFEN{FEN: fen, Reason: "rank overflow"}
		}
	}

	cidx, err := castlingIndex(castling)
	if err != nil {
		return Key{}, &ErrInvalidFEN{FEN: fen, Reason: err.Error()}
	}
	hash ^= castlingTable[cidx]

	epFile, err := enPassantFile(ep)
	if err != nil {
		return Key{}, &ErrInvalidFEN{FEN: fen, Reason: err.Error()}
	}
	if epFile >= 0 {
		hash ^= enPassantTable[epFile]
	}

	if turnStr == "b" {
		hash ^= sideToMoveHash
	}

	return Key{Zobrist: hash, NormFEN: norm}, nil
}

// Parse parses a persisted position-key string of the form
// "<16-hex-chars>:<normalized-fen>". Any deviation from that exact format
// returns ok=false rather than an error, rather than a parse error.
func Parse(s string) (Key, bool) {
	idx := strings.IndexByte(s, ':')
	if idx != 16 {
		return Key{}, false
	}
	hexPart, fenPart := s[:16], s[17:]

	hash, err := strconv.ParseUint(hexPart, 16, 64)
	if err != nil {
		return Key{}, false
	}
	for _, r := range hexPart {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
			return Key{}, false
		}
	}
	norm, err := Normalize(fenPart)
	if err != nil || norm != fenPart {
		return Key{}, false
	}
	return Key{Zobrist: hash, NormFEN: fenPart}, true
}
