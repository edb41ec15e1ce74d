package theme

import (
	"strings"

	"github.com/chessannotate/core/pkg/artifact"
	"github.com/chessannotate/core/pkg/geom"
)

func directionsFor(kind geom.Piece) []geom.Direction {
	switch kind {
	case geom.Bishop:
		return geom.DiagonalDirections
	case geom.Rook:
		return geom.OrthogonalDirections
	case geom.Queen:
		return geom.AllDirections
	default:
		return nil
	}
}

// pinTrack records, per pinned square, how many distinct ray directions
// produced a pin -- used to detect cross_pin.
type pinTrack struct {
	square     geom.Square
	directions map[geom.Direction]bool
}

func detectPins(b *boardView) []artifact.DetectedTheme {
	var out []artifact.DetectedTheme
	tracks := map[geom.Square]*pinTrack{}

	for color := geom.White; color <= geom.Black; color++ {
		for _, sq := range allSliderSquares(b, color) {
			piece, _ := b.at(sq)
			for _, d := range directionsFor(piece.Kind) {
				front, frontPiece, ok := b.firstOnRay(sq, d)
				if !ok || frontPiece.Color == color {
					continue // no enemy piece first on this ray
				}
				back, backPiece, ok := b.secondOnRay(front, d)
				if !ok || backPiece.Color != frontPiece.Color {
					continue // nothing, or not a same-side piece behind
				}

				switch {
				case backPiece.Kind == geom.King:
					out = append(out, artifact.DetectedTheme{
						ID:          "absolute_pin",
						Category:    artifact.CategoryTactical,
						Confidence:  artifact.ConfHigh,
						Severity:    artifact.SevSignificant,
						Beneficiary: beneficiaryOf(color),
						Squares:     sqStrings(sq, front, back),
						Pieces:      []string{piece.Kind.String(), frontPiece.Kind.String(), backPiece.Kind.String()},
						Explanation: fmtExplain("%v on %v pins %v on %v to the king on %v", piece.Kind, sq, frontPiece.Kind, front, back),
					})
					track(tracks, front, d)

				case backPiece.Kind.Value() > frontPiece.Kind.Value():
					out = append(out, artifact.DetectedTheme{
						ID:               "relative_pin",
						Category:         artifact.CategoryTactical,
						Confidence:       artifact.ConfHigh,
						Severity:         artifact.SevMinor,
						Beneficiary:      beneficiaryOf(color),
						Squares:          sqStrings(sq, front, back),
						Pieces:           []string{piece.Kind.String(), frontPiece.Kind.String(), backPiece.Kind.String()},
						Explanation:      fmtExplain("%v on %v pins %v on %v to the more valuable %v on %v", piece.Kind, sq, frontPiece.Kind, front, backPiece.Kind, back),
						MaterialAtStake:  frontPiece.Kind.Value(),
						HasMaterialStake: true,
					})
					track(tracks, front, d)
				}
			}
		}
	}

	for sq, tr := range tracks {
		if len(tr.directions) >= 2 {
			out = append(out, artifact.DetectedTheme{
				ID:          "cross_pin",
				Category:    artifact.CategoryTactical,
				Confidence:  artifact.ConfMed,
				Severity:    artifact.SevSignificant,
				Beneficiary: "", // cross-pin names the victim, not a single beneficiary side
				Squares:     sqStrings(sq),
				Explanation: fmtExplain("piece on %v is pinned along two different lines simultaneously", sq),
			})
		}
	}
	return out
}

func track(tracks map[geom.Square]*pinTrack, sq geom.Square, d geom.Direction) {
	tr, ok := tracks[sq]
	if !ok {
		tr = &pinTrack{square: sq, directions: map[geom.Direction]bool{}}
		tracks[sq] = tr
	}
	tr.directions[d] = true
}

func detectSkewers(b *boardView) []artifact.DetectedTheme {
	var out []artifact.DetectedTheme
	for color := geom.White; color <= geom.Black; color++ {
		for _, sq := range allSliderSquares(b, color) {
			piece, _ := b.at(sq)
			for _, d := range directionsFor(piece.Kind) {
				front, frontPiece, ok := b.firstOnRay(sq, d)
				if !ok || frontPiece.Color == color {
					continue
				}
				back, backPiece, ok := b.secondOnRay(front, d)
				if !ok || backPiece.Color != frontPiece.Color {
					continue
				}
				if frontPiece.Kind.Value() > backPiece.Kind.Value() {
					out = append(out, artifact.DetectedTheme{
						ID:               "skewer",
						Category:         artifact.CategoryTactical,
						Confidence:       artifact.ConfHigh,
						Severity:         artifact.SevSignificant,
						Beneficiary:      beneficiaryOf(color),
						Squares:          sqStrings(sq, front, back),
						Pieces:           []string{piece.Kind.String(), frontPiece.Kind.String(), backPiece.Kind.String()},
						Explanation:      fmtExplain("%v on %v skewers %v on %v to %v on %v", piece.Kind, sq, frontPiece.Kind, front, backPiece.Kind, back),
						MaterialAtStake:  backPiece.Kind.Value(),
						HasMaterialStake: true,
					})
				}
			}
		}
	}
	return out
}

func detectXRays(b *boardView) []artifact.DetectedTheme {
	var out []artifact.DetectedTheme
	for color := geom.White; color <= geom.Black; color++ {
		for _, sq := range allSliderSquares(b, color) {
			piece, _ := b.at(sq)
			for _, d := range directionsFor(piece.Kind) {
				front, frontPiece, ok := b.firstOnRay(sq, d)
				if !ok {
					continue
				}
				back, backPiece, ok := b.secondOnRay(front, d)
				if !ok {
					continue
				}

				switch {
				case frontPiece.Color != color && backPiece.Color == frontPiece.Color && backPiece.Kind == geom.Queen && frontPiece.Kind.Value() <= backPiece.Kind.Value():
					// X-ray attack: king-backed rays are already reported as absolute_pin.
					out = append(out, artifact.DetectedTheme{
						ID:          "xray_attack",
						Category:    artifact.CategoryTactical,
						Confidence:  artifact.ConfMed,
						Severity:    artifact.SevMinor,
						Beneficiary: beneficiaryOf(color),
						Squares:     sqStrings(sq, front, back),
						Pieces:      []string{piece.Kind.String(), frontPiece.Kind.String(), backPiece.Kind.String()},
						Explanation: fmtExplain("%v on %v x-rays through %v to the queen on %v", piece.Kind, sq, front, back),
					})

				case frontPiece.Color != color && backPiece.Color == color && backPiece.Kind.Value() >= 3:
					out = append(out, artifact.DetectedTheme{
						ID:          "xray_defense",
						Category:    artifact.CategoryTactical,
						Confidence:  artifact.ConfMed,
						Severity:    artifact.SevMinor,
						Beneficiary: beneficiaryOf(color),
						Squares:     sqStrings(sq, front, back),
						Pieces:      []string{piece.Kind.String(), frontPiece.Kind.String(), backPiece.Kind.String()},
						Explanation: fmtExplain("%v on %v x-ray defends %v on %v through %v", piece.Kind, sq, backPiece.Kind, back, front),
					})
				}
			}
		}
	}
	return out
}

func allSliderSquares(b *boardView, color geom.Color) []geom.Square {
	var out []geom.Square
	out = append(out, b.squaresOf(color, geom.Bishop)...)
	out = append(out, b.squaresOf(color, geom.Rook)...)
	out = append(out, b.squaresOf(color, geom.Queen)...)
	return out
}

func detectForks(b *boardView) []artifact.DetectedTheme {
	var out []artifact.DetectedTheme
	for color := geom.White; color <= geom.Black; color++ {
		for _, sq := range b.squaresOf(color, geom.Knight) {
			var hit []geom.Square
			var pieces []geom.Piece
			combined := 0
			hasHighValue := false
			for _, t := range geom.KnightTargets(sq) {
				p, ok := b.at(t)
				if !ok || p.Color == color {
					continue
				}
				hit = append(hit, t)
				pieces = append(pieces, p.Kind)
				combined += p.Kind.Value()
				if p.Kind == geom.King || p.Kind == geom.Queen {
					hasHighValue = true
				}
			}
			if len(hit) >= 2 && (combined >= 6 || hasHighValue) {
				names := make([]string, len(pieces))
				for i, p := range pieces {
					names[i] = p.String()
				}
				out = append(out, artifact.DetectedTheme{
					ID:               "knight_fork",
					Category:         artifact.CategoryTactical,
					Confidence:       artifact.ConfHigh,
					Severity:         severityForFork(hasHighValue),
					Beneficiary:      beneficiaryOf(color),
					Squares:          sqStrings(append([]geom.Square{sq}, hit...)...),
					Pieces:           append([]string{"N"}, names...),
					Explanation:      fmtExplain("knight on %v forks %v", sq, joinSquares(hit)),
					MaterialAtStake:  combined,
					HasMaterialStake: true,
				})
			}
		}
	}
	return out
}

func joinSquares(sqs []geom.Square) string {
	return strings.Join(sqStrings(sqs...), ", ")
}

func severityForFork(hasHighValue bool) artifact.Severity {
	if hasHighValue {
		return artifact.SevCritical
	}
	return artifact.SevSignificant
}

func detectDoubleCheck(b *boardView) []artifact.DetectedTheme {
	var out []artifact.DetectedTheme
	king, ok := b.kingSquare(b.turn)
	if !ok {
		return nil
	}
	attackers := b.pos.GetAttackers(king, b.turn.Opponent())
	if len(attackers) >= 2 {
		out = append(out, artifact.DetectedTheme{
			ID:          "double_check",
			Category:    artifact.CategoryTactical,
			Confidence:  artifact.ConfHigh,
			Severity:    artifact.SevCritical,
			Beneficiary: beneficiaryOf(b.turn.Opponent()),
			Squares:     sqStrings(append([]geom.Square{king}, attackers...)...),
			Explanation: fmtExplain("the king on %v is in check from %v pieces simultaneously", king, len(attackers)),
		})
	}
	return out
}

func detectDiscoveries(b *boardView) []artifact.DetectedTheme {
	var out []artifact.DetectedTheme
	legal := map[string]bool{}
	for _, m := range b.pos.GetLegalMoves() {
		if len(m) >= 2 {
			legal[m[:2]] = true
		}
	}

	for color := geom.White; color <= geom.Black; color++ {
		for _, sq := range allSliderSquares(b, color) {
			piece, _ := b.at(sq)
			for _, d := range directionsFor(piece.Kind) {
				blocker, blockerPiece, ok := b.firstOnRay(sq, d)
				if !ok || blockerPiece.Color != color {
					continue // must be own blocker to "discover" anything
				}
				if !legal[blocker.String()] {
					continue // blocker has no legal move: nothing can be discovered
				}
				target, targetPiece, ok := b.secondOnRay(blocker, d)
				if !ok || targetPiece.Color == color {
					continue
				}
				if targetPiece.Kind == geom.King {
					out = append(out, artifact.DetectedTheme{
						ID:          "discovered_check",
						Category:    artifact.CategoryTactical,
						Confidence:  artifact.ConfMed,
						Severity:    artifact.SevCritical,
						Beneficiary: beneficiaryOf(color),
						Squares:     sqStrings(sq, blocker, target),
						Explanation: fmtExplain("moving the %v on %v would discover check from the %v on %v", blockerPiece.Kind, blocker, piece.Kind, sq),
					})
				} else if targetPiece.Kind.Value() >= 3 {
					out = append(out, artifact.DetectedTheme{
						ID:               "discovered_attack",
						Category:         artifact.CategoryTactical,
						Confidence:       artifact.ConfMed,
						Severity:         artifact.SevSignificant,
						Beneficiary:      beneficiaryOf(color),
						Squares:          sqStrings(sq, blocker, target),
						Explanation:      fmtExplain("moving the %v on %v would discover an attack on the %v on %v", blockerPiece.Kind, blocker, targetPiece.Kind, target),
						MaterialAtStake:  targetPiece.Kind.Value(),
						HasMaterialStake: true,
					})
				}
			}
		}
	}
	return out
}
