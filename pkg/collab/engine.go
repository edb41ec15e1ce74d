package collab

import (
	"context"
	"time"
)

// EvalParams bounds one evaluate_multi_pv call.
type EvalParams struct {
	Depth        int
	TimeLimit    time.Duration
	NumLines     int
	MateMinTime  time.Duration
}

// Evaluation is one PV line, from the side-to-move's perspective. Mate, if
// set, is a signed distance in plies (positive: side to move mates).
type Evaluation struct {
	CP        int
	Mate      int
	HasMate   bool
	Depth     int
	PVSan     []string
	PVUci     []string
}

// ErrEngineUnavailable signals the engine collaborator could not be reached.
type ErrEngineUnavailable struct{ Reason string }

func (e *ErrEngineUnavailable) Error() string { return "engine unavailable: " + e.Reason }

// ErrEngineTimeout signals a per-call timeout elapsed before the engine
// returned an evaluation.
type ErrEngineTimeout struct{ Elapsed time.Duration }

func (e *ErrEngineTimeout) Error() string { return "engine timed out" }

// Engine is the external search-engine collaborator (§6). Evaluations are
// index-aligned by PV line; index 0 is the best line. Implementations are
// expected to apply their own per-call timeout and surface it as
// *ErrEngineTimeout; ctx cancellation must also be honored.
type Engine interface {
	EvaluateMultiPV(ctx context.Context, fen string, p EvalParams) ([]Evaluation, error)
}

// MaiaPrediction is one candidate move with its predicted human play
// probability, as returned by the Maia-like human-move model.
type MaiaPrediction struct {
	MoveSAN     string
	Probability float64
}

// HumanMoveModel is the optional Maia-like human-move collaborator.
type HumanMoveModel interface {
	Predict(ctx context.Context, fen string, rating int) ([]MaiaPrediction, error)
}

// OpeningEntry is the opening-book lookup result.
type OpeningEntry struct {
	ECO       string
	Name      string
	Variation string
}

// OpeningDB is the optional opening-book collaborator.
type OpeningDB interface {
	// Lookup resolves a position, either by its move history (UCI moves
	// from the game start) or by FEN -- the implementation's choice.
	// ok is false if the position is out of book.
	Lookup(ctx context.Context, moveHistory []string, fen string) (OpeningEntry, bool, error)
}

// ReferenceGame is one game returned by the reference-games database.
type ReferenceGame struct {
	White  string
	Black  string
	Date   string
	Result string
	Event  string
}

// ReferenceGamesDB is the optional master-game-index collaborator.
type ReferenceGamesDB interface {
	GetReferenceGames(ctx context.Context, fen string, limit int) (games []ReferenceGame, total int, err error)
}
