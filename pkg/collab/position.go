// Package collab declares the Go-shaped contracts for every external
// collaborator this analysis core talks to: the PGN module, the search
// engine, the human-move model, the opening book, the reference-games
// database and the LLM client. Only interfaces and call-shape structs live
// here -- the analysis core never implements chess rules, search or
// language generation itself.
package collab

import "github.com/chessannotate/core/pkg/geom"

// MoveResult is returned by Position.Move: the SAN actually played and the
// FEN before/after the move.
type MoveResult struct {
	SAN       string
	FENBefore string
	FENAfter  string
}

// ErrIllegalMove is returned by Position.Move when the given move (SAN or
// UCI) is not legal in the current position.
type ErrIllegalMove struct {
	Move string
}

func (e *ErrIllegalMove) Error() string {
	return "illegal move: " + e.Move
}

// Piece is a square occupant as reported by the position collaborator.
type Piece struct {
	Color geom.Color
	Kind  geom.Piece
}

// Position is the external, mutable chess-position collaborator. The
// analysis core never implements move legality or generation itself --
// every mutation and query goes through this interface, which is backed by
// a separate PGN/rules module (out of scope for this core).
type Position interface {
	FEN() string
	Turn() geom.Color

	// Move applies a SAN or UCI move and returns the resulting transition,
	// or *ErrIllegalMove if the move is not legal.
	Move(move string) (MoveResult, error)

	Clone() Position

	IsLegalMove(move string) bool
	GetLegalMoves() []string

	IsCheck() bool
	IsCheckmate() bool
	IsStalemate() bool
	IsGameOver() bool

	GetPiece(sq geom.Square) (Piece, bool)
	GetAllPieces() map[geom.Square]Piece

	// GetAttackers returns every square occupied by a piece of the given
	// color that attacks sq.
	GetAttackers(sq geom.Square, by geom.Color) []geom.Square
	IsSquareAttacked(sq geom.Square, by geom.Color) bool

	UCIToSAN(uci string) (string, error)
	SANToUCI(san string) (string, error)
}

// NewPositionFunc constructs a Position collaborator for a starting FEN (or the
// standard initial position if fen is empty). Implemented by the external
// rules module; declared here only to fix the call shape expected by
// callers in this repository (notably tests, via a fake).
type NewPositionFunc func(fen string) (Position, error)

// Game is the parsed representation of one PGN game, as produced by the
// external PGN module's parse(text) -> []Game operation.
type Game struct {
	Tags     map[string]string
	Moves    []GameMove
	StartFEN string
}

// GameMove is one ply of a parsed game, prior to annotation.
type GameMove struct {
	SAN  string
	UCI  string
	NAGs []int
}

// AnnotatedMove augments a parsed move with the analysis core's output, for
// handoff back to the external renderer. It is a sibling produced by the
// orchestrator, not a mutation of GameMove, keeping mutable per-move
// analysis state out of the parsed move record itself.
type AnnotatedMove struct {
	SAN        string
	UCI        string
	NAGs       []int
	Comment    string
	Variations []Variation
}

// Variation is a rendered side-line: a sequence of moves with optional
// per-move comments, suitable for PGN's recursive variation syntax.
type Variation struct {
	Moves []AnnotatedMove
}

// AnnotatedGame is the full handoff to the external renderer: original game
// tags plus one AnnotatedMove per ply, plus optional game-level comments
// (e.g. the supplemented GameSummary, attached as a header comment).
type AnnotatedGame struct {
	Tags          map[string]string
	Moves         []AnnotatedMove
	HeaderComment string
}

// PGNModule is the external parse/render collaborator.
type PGNModule interface {
	Parse(text string) ([]Game, error)
	Render(game AnnotatedGame) (string, error)
}
