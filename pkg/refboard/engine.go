package refboard

import (
	"context"
	"sort"

	"github.com/chessannotate/core/pkg/collab"
	"github.com/chessannotate/core/pkg/geom"
)

// Engine is a collab.Engine backed by a plain negamax search over the
// package's own move generator and a material-only static evaluator. It has
// no transposition table, move ordering heuristics or quiescence search --
// strength is bounded well below a production engine, which is the point: it
// exists so cmd/annotate has a default, dependency-free collaborator to run
// against, not to produce competitive evaluations.
type Engine struct {
	// MaxDepth caps the search depth regardless of p.Depth, to keep a call
	// bounded in the absence of a time-based cutoff. Zero means 3.
	MaxDepth int
}

var _ collab.Engine = (*Engine)(nil)

const mateScore = 100000

func (e *Engine) EvaluateMultiPV(ctx context.Context, fen string, p collab.EvalParams) ([]collab.Evaluation, error) {
	b, err := decodeFEN(fen)
	if err != nil {
		return nil, &collab.ErrEngineUnavailable{Reason: err.Error()}
	}

	depth := p.Depth
	max := e.MaxDepth
	if max == 0 {
		max = 3
	}
	if depth <= 0 || depth > max {
		depth = max
	}

	numLines := p.NumLines
	if numLines <= 0 {
		numLines = 1
	}

	legal := b.legalMoves(b.turn)
	if len(legal) == 0 {
		if king, ok := b.kingSquare(b.turn); ok && b.isSquareAttacked(king, b.turn.Opponent()) {
			return []collab.Evaluation{{HasMate: true, Mate: 0, Depth: depth}}, nil
		}
		return []collab.Evaluation{{CP: 0, Depth: depth}}, nil
	}

	type scored struct {
		m  genMove
		cp int
		pv []genMove
	}
	var lines []scored
	for _, m := range legal {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		next := b.apply(m)
		cp, pv := negamax(next, depth-1, -mateScore, mateScore)
		lines = append(lines, scored{m: m, cp: -cp, pv: append([]genMove{m}, pv...)})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].cp > lines[j].cp })
	if len(lines) > numLines {
		lines = lines[:numLines]
	}

	out := make([]collab.Evaluation, 0, len(lines))
	for _, l := range lines {
		eval := collab.Evaluation{CP: l.cp, Depth: depth}
		cur := b
		for _, pm := range l.pv {
			eval.PVSan = append(eval.PVSan, san(cur, pm))
			eval.PVUci = append(eval.PVUci, uci(pm))
			cur = cur.apply(pm)
		}
		out = append(out, eval)
	}
	return out, nil
}

// negamax returns the centipawn score from the position's side to move, and
// the principal variation leading to it.
func negamax(b *board, depth int, alpha, beta int) (int, []genMove) {
	legal := b.legalMoves(b.turn)
	if len(legal) == 0 {
		if king, ok := b.kingSquare(b.turn); ok && b.isSquareAttacked(king, b.turn.Opponent()) {
			return -mateScore, nil
		}
		return 0, nil
	}
	if depth <= 0 {
		return materialScore(b), nil
	}

	best := -mateScore - 1
	var bestPV []genMove
	for _, m := range legal {
		next := b.apply(m)
		score, pv := negamax(next, depth-1, -beta, -alpha)
		score = -score
		if score > best {
			best = score
			bestPV = append([]genMove{m}, pv...)
		}
		if best > alpha {
			alpha = best
		}
		if alpha >= beta {
			break
		}
	}
	return best, bestPV
}

// materialScore is the centipawn material balance from the side to move's
// perspective. The king is excluded, per geom.Piece.Value's documented
// caveat that its nominal value is for ray comparisons, never material
// totals.
func materialScore(b *board) int {
	total := 0
	for _, pc := range b.pieces {
		if pc.Kind == geom.King {
			continue
		}
		v := pc.Kind.Value() * 100
		if pc.Color == b.turn {
			total += v
		} else {
			total -= v
		}
	}
	return total
}
