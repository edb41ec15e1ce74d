package theme

import (
	"github.com/chessannotate/core/pkg/artifact"
	"github.com/chessannotate/core/pkg/collab"
	"github.com/chessannotate/core/pkg/geom"
)

// detectHanging flags undefended pieces attacked by the opponent: an
// immediate material threat rather than a pin or fork shape.
func detectHanging(b *boardView) []artifact.DetectedTheme {
	var out []artifact.DetectedTheme
	for sq, p := range b.pieces {
		if p.Kind == geom.King {
			continue
		}
		opp := p.Color.Opponent()
		if !b.pos.IsSquareAttacked(sq, opp) {
			continue
		}
		if b.pos.IsSquareAttacked(sq, p.Color) {
			continue // defended, not hanging
		}
		out = append(out, artifact.DetectedTheme{
			ID:               "hanging_piece",
			Category:         artifact.CategoryTactical,
			Confidence:       artifact.ConfHigh,
			Severity:         severityForHanging(p.Kind),
			Beneficiary:      beneficiaryOf(opp),
			Squares:          sqStrings(sq),
			Pieces:           []string{p.Kind.String()},
			Explanation:      fmtExplain("the %v on %v is undefended and attacked", p.Kind, sq),
			MaterialAtStake:  p.Kind.Value(),
			HasMaterialStake: true,
		})
	}
	return out
}

func severityForHanging(k geom.Piece) artifact.Severity {
	if k == geom.Queen || k == geom.Rook {
		return artifact.SevCritical
	}
	return artifact.SevSignificant
}

func (b *boardView) pawnsOf(color geom.Color) []geom.Square {
	return b.squaresOf(color, geom.Pawn)
}

// detectPassedPawns flags pawns with no enemy pawn able to stop them on
// their own file or an adjacent one, ahead of the pawn's rank.
func detectPassedPawns(b *boardView) []artifact.DetectedTheme {
	var out []artifact.DetectedTheme
	for color := geom.White; color <= geom.Black; color++ {
		opp := color.Opponent()
		oppPawns := b.pawnsOf(opp)
		for _, sq := range b.pawnsOf(color) {
			if isPassed(sq, color, oppPawns) {
				out = append(out, artifact.DetectedTheme{
					ID:          "passed_pawn",
					Category:    artifact.CategoryPositional,
					Confidence:  artifact.ConfHigh,
					Severity:    severityForPassed(sq, color),
					Beneficiary: beneficiaryOf(color),
					Squares:     sqStrings(sq),
					Pieces:      []string{"P"},
					Explanation: fmtExplain("the pawn on %v is passed", sq),
				})
			}
		}
	}
	return out
}

func isPassed(sq geom.Square, color geom.Color, oppPawns []geom.Square) bool {
	for _, o := range oppPawns {
		if abs(o.File()-sq.File()) > 1 {
			continue
		}
		if color == geom.White && o.Rank() > sq.Rank() {
			return false
		}
		if color == geom.Black && o.Rank() < sq.Rank() {
			return false
		}
	}
	return true
}

func severityForPassed(sq geom.Square, color geom.Color) artifact.Severity {
	rank := sq.Rank()
	if color == geom.Black {
		rank = 7 - rank
	}
	switch {
	case rank >= 5:
		return artifact.SevSignificant
	default:
		return artifact.SevMinor
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// detectIsolatedDoubledBackward covers the remaining pawn-structure
// weaknesses: isolated (no friendly pawn on an adjacent file), doubled
// (two+ friendly pawns sharing a file) and backward (behind both neighbor
// files' pawns and unable to safely advance).
func detectIsolatedDoubledBackward(b *boardView) []artifact.DetectedTheme {
	var out []artifact.DetectedTheme
	for color := geom.White; color <= geom.Black; color++ {
		pawns := b.pawnsOf(color)
		byFile := map[int][]geom.Square{}
		for _, sq := range pawns {
			byFile[sq.File()] = append(byFile[sq.File()], sq)
		}

		for file, sqs := range byFile {
			if len(sqs) >= 2 {
				out = append(out, artifact.DetectedTheme{
					ID:          "doubled_pawns",
					Category:    artifact.CategoryPositional,
					Confidence:  artifact.ConfHigh,
					Severity:    artifact.SevMinor,
					Beneficiary: beneficiaryOf(color.Opponent()),
					Squares:     sqStrings(sqs...),
					Pieces:      []string{"P", "P"},
					Explanation: fmtExplain("doubled pawns on the %c-file", 'a'+rune(file)),
				})
			}

			hasLeft := len(byFile[file-1]) > 0
			hasRight := len(byFile[file+1]) > 0
			if !hasLeft && !hasRight {
				for _, sq := range sqs {
					out = append(out, artifact.DetectedTheme{
						ID:          "isolated_pawn",
						Category:    artifact.CategoryPositional,
						Confidence:  artifact.ConfHigh,
						Severity:    artifact.SevMinor,
						Beneficiary: beneficiaryOf(color.Opponent()),
						Squares:     sqStrings(sq),
						Pieces:      []string{"P"},
						Explanation: fmtExplain("the pawn on %v is isolated", sq),
					})
				}
			}
		}

		for _, sq := range pawns {
			if isBackward(b, sq, color) {
				out = append(out, artifact.DetectedTheme{
					ID:          "backward_pawn",
					Category:    artifact.CategoryPositional,
					Confidence:  artifact.ConfMed,
					Severity:    artifact.SevMinor,
					Beneficiary: beneficiaryOf(color.Opponent()),
					Squares:     sqStrings(sq),
					Pieces:      []string{"P"},
					Explanation: fmtExplain("the pawn on %v is backward", sq),
				})
			}
		}
	}
	return out
}

func isBackward(b *boardView, sq geom.Square, color geom.Color) bool {
	step := 1
	if color == geom.Black {
		step = -1
	}
	for _, df := range []int{-1, 1} {
		f := sq.File() + df
		if f < 0 || f > 7 {
			continue
		}
		for _, p := range b.pawnsOf(color) {
			if p.File() != f {
				continue
			}
			if color == geom.White && p.Rank() <= sq.Rank() {
				return false
			}
			if color == geom.Black && p.Rank() >= sq.Rank() {
				return false
			}
		}
	}
	ahead, ok := geom.NewSquare(sq.File(), sq.Rank()+step), sq.Rank()+step >= 0 && sq.Rank()+step <= 7
	if !ok {
		return false
	}
	return b.pos.IsSquareAttacked(ahead, color.Opponent())
}

// detectFileControl flags open files (no pawns of either color) and
// semi-open files (no friendly pawn) occupied by a friendly rook or queen.
func detectFileControl(b *boardView) []artifact.DetectedTheme {
	var out []artifact.DetectedTheme
	pawnFiles := map[int]map[geom.Color]bool{}
	for color := geom.White; color <= geom.Black; color++ {
		for _, sq := range b.pawnsOf(color) {
			if pawnFiles[sq.File()] == nil {
				pawnFiles[sq.File()] = map[geom.Color]bool{}
			}
			pawnFiles[sq.File()][color] = true
		}
	}

	for color := geom.White; color <= geom.Black; color++ {
		for _, kind := range []geom.Piece{geom.Rook, geom.Queen} {
			for _, sq := range b.squaresOf(color, kind) {
				file := sq.File()
				own, opp := pawnFiles[file][color], pawnFiles[file][color.Opponent()]
				switch {
				case !own && !opp:
					out = append(out, artifact.DetectedTheme{
						ID:          "open_file",
						Category:    artifact.CategoryPositional,
						Confidence:  artifact.ConfHigh,
						Severity:    artifact.SevMinor,
						Beneficiary: beneficiaryOf(color),
						Squares:     sqStrings(sq),
						Explanation: fmtExplain("%v on %v controls the open %c-file", kind, sq, 'a'+rune(file)),
					})
				case !own && opp:
					out = append(out, artifact.DetectedTheme{
						ID:          "semi_open_file",
						Category:    artifact.CategoryPositional,
						Confidence:  artifact.ConfMed,
						Severity:    artifact.SevMinor,
						Beneficiary: beneficiaryOf(color),
						Squares:     sqStrings(sq),
						Explanation: fmtExplain("%v on %v controls the semi-open %c-file", kind, sq, 'a'+rune(file)),
					})
				}
			}
		}
	}
	return out
}

// detectBackRank flags a king on the back rank shielded only by its own
// pawns, with no escape square -- the classic back-rank mate motif.
func detectBackRank(b *boardView) []artifact.DetectedTheme {
	var out []artifact.DetectedTheme
	for color := geom.White; color <= geom.Black; color++ {
		king, ok := b.kingSquare(color)
		if !ok {
			continue
		}
		backRank := 0
		if color == geom.Black {
			backRank = 7
		}
		if king.Rank() != backRank {
			continue
		}

		escape := false
		for _, t := range geom.KingTargets(king) {
			if t.Rank() == backRank {
				continue
			}
			if _, occupied := b.at(t); occupied {
				continue
			}
			if !b.pos.IsSquareAttacked(t, color.Opponent()) {
				escape = true
				break
			}
		}
		if escape {
			continue
		}

		sev := artifact.SevMinor
		if attackedOnFile := hasRookOrQueenAttacker(b, king, color.Opponent()); attackedOnFile {
			sev = artifact.SevCritical
		}
		out = append(out, artifact.DetectedTheme{
			ID:          "back_rank_weakness",
			Category:    artifact.CategoryPositional,
			Confidence:  artifact.ConfMed,
			Severity:    sev,
			Beneficiary: beneficiaryOf(color.Opponent()),
			Squares:     sqStrings(king),
			Explanation: fmtExplain("the king on %v has no escape from the back rank", king),
		})
	}
	return out
}

func hasRookOrQueenAttacker(b *boardView, sq geom.Square, by geom.Color) bool {
	for _, kind := range []geom.Piece{geom.Rook, geom.Queen} {
		for _, s := range b.squaresOf(by, kind) {
			if s.File() == sq.File() || s.Rank() == sq.Rank() {
				return true
			}
		}
	}
	return false
}

// detectKingSafety flags a weakened king shield: at least two of the three
// squares directly in front of the king (its own file and the adjacent
// ones) hold no friendly pawn. Open lines toward the king are not examined.
func detectKingSafety(b *boardView) []artifact.DetectedTheme {
	var out []artifact.DetectedTheme
	for color := geom.White; color <= geom.Black; color++ {
		king, ok := b.kingSquare(color)
		if !ok {
			continue
		}
		shieldRank := king.Rank() + 1
		if color == geom.Black {
			shieldRank = king.Rank() - 1
		}
		if shieldRank < 0 || shieldRank > 7 {
			continue
		}

		missing := 0
		for df := -1; df <= 1; df++ {
			f := king.File() + df
			if f < 0 || f > 7 {
				continue
			}
			sq := geom.NewSquare(f, shieldRank)
			p, ok := b.at(sq)
			if !ok || p.Kind != geom.Pawn || p.Color != color {
				missing++
			}
		}
		if missing >= 2 {
			out = append(out, artifact.DetectedTheme{
				ID:          "weak_king_shield",
				Category:    artifact.CategoryPositional,
				Confidence:  artifact.ConfMed,
				Severity:    artifact.SevSignificant,
				Beneficiary: beneficiaryOf(color.Opponent()),
				Squares:     sqStrings(king),
				Explanation: fmtExplain("the king on %v has a damaged pawn shield", king),
			})
		}
	}
	return out
}

// detectTrappedAndDomination flags pieces whose every destination square is
// attacked by a lower-or-equal-value enemy piece (trapped), escalating to
// domination when the piece additionally has no legal destination at all.
func detectTrappedAndDomination(b *boardView) []artifact.DetectedTheme {
	var out []artifact.DetectedTheme
	destinations := map[string][]geom.Square{}
	for _, m := range b.pos.GetLegalMoves() {
		if len(m) < 4 {
			continue
		}
		from := m[:2]
		to, err := geom.ParseSquare(m[2:4])
		if err != nil {
			continue
		}
		destinations[from] = append(destinations[from], to)
	}

	for sq, p := range b.pieces {
		if p.Kind == geom.King || p.Kind == geom.Pawn {
			continue
		}
		dests := destinations[sq.String()]
		if len(dests) == 0 {
			out = append(out, artifact.DetectedTheme{
				ID:          "domination",
				Category:    artifact.CategoryTactical,
				Confidence:  artifact.ConfMed,
				Severity:    artifact.SevSignificant,
				Beneficiary: beneficiaryOf(p.Color.Opponent()),
				Squares:     sqStrings(sq),
				Pieces:      []string{p.Kind.String()},
				Explanation: fmtExplain("the %v on %v has no legal destination", p.Kind, sq),
			})
			continue
		}

		allBad := true
		for _, d := range dests {
			if !isGuardedByLowerOrEqual(b, d, p) {
				allBad = false
				break
			}
		}
		if allBad {
			out = append(out, artifact.DetectedTheme{
				ID:          "trapped_piece",
				Category:    artifact.CategoryTactical,
				Confidence:  artifact.ConfMed,
				Severity:    artifact.SevSignificant,
				Beneficiary: beneficiaryOf(p.Color.Opponent()),
				Squares:     sqStrings(sq),
				Pieces:      []string{p.Kind.String()},
				Explanation: fmtExplain("the %v on %v has no safe destination", p.Kind, sq),
			})
		}
	}
	return out
}

func isGuardedByLowerOrEqual(b *boardView, sq geom.Square, p collab.Piece) bool {
	if !b.pos.IsSquareAttacked(sq, p.Color.Opponent()) {
		return false
	}
	for _, asq := range b.pos.GetAttackers(sq, p.Color.Opponent()) {
		if ap, ok := b.at(asq); ok && ap.Kind.Value() <= p.Kind.Value() {
			return true
		}
	}
	return false
}

// detectOutposts flags a knight or bishop on a hole in the enemy pawn
// structure -- a square no enemy pawn can ever attack -- defended by any
// friendly piece.
func detectOutposts(b *boardView) []artifact.DetectedTheme {
	var out []artifact.DetectedTheme
	for color := geom.White; color <= geom.Black; color++ {
		opp := color.Opponent()
		for _, kind := range []geom.Piece{geom.Knight, geom.Bishop} {
			for _, sq := range b.squaresOf(color, kind) {
				if !b.pos.IsSquareAttacked(sq, color) {
					continue // not pawn-defended (approximation: any friendly defense)
				}
				if canEverBeAttackedByPawn(sq, opp, b.pawnsOf(opp)) {
					continue
				}
				out = append(out, artifact.DetectedTheme{
					ID:          "outpost",
					Category:    artifact.CategoryPositional,
					Confidence:  artifact.ConfMed,
					Severity:    artifact.SevMinor,
					Beneficiary: beneficiaryOf(color),
					Squares:     sqStrings(sq),
					Pieces:      []string{kind.String()},
					Explanation: fmtExplain("the %v on %v sits on a permanent outpost", kind, sq),
				})
			}
		}
	}
	return out
}

func canEverBeAttackedByPawn(sq geom.Square, pawnColor geom.Color, pawns []geom.Square) bool {
	for _, p := range pawns {
		if abs(p.File()-sq.File()) != 1 {
			continue
		}
		if pawnColor == geom.White && p.Rank() < sq.Rank() {
			return true
		}
		if pawnColor == geom.Black && p.Rank() > sq.Rank() {
			return true
		}
	}
	return false
}

// detectSpaceAndDevelopment compares each side's pawn advancement and
// minor-piece development as a coarse positional-edge signal.
func detectSpaceAndDevelopment(b *boardView) []artifact.DetectedTheme {
	var out []artifact.DetectedTheme

	wSpace, bSpace := 0, 0
	for _, sq := range b.pawnsOf(geom.White) {
		if sq.Rank() >= 3 {
			wSpace++
		}
	}
	for _, sq := range b.pawnsOf(geom.Black) {
		if sq.Rank() <= 4 {
			bSpace++
		}
	}
	if d := wSpace - bSpace; abs(d) >= 3 {
		winner := geom.White
		if d < 0 {
			winner = geom.Black
		}
		out = append(out, artifact.DetectedTheme{
			ID:          "space_advantage",
			Category:    artifact.CategoryPositional,
			Confidence:  artifact.ConfLow,
			Severity:    artifact.SevMinor,
			Beneficiary: beneficiaryOf(winner),
			Explanation: "advanced pawns claim more space",
		})
	}

	wDev := developedMinors(b, geom.White)
	bDev := developedMinors(b, geom.Black)
	if d := wDev - bDev; abs(d) >= 2 {
		winner := geom.White
		if d < 0 {
			winner = geom.Black
		}
		out = append(out, artifact.DetectedTheme{
			ID:          "development_lead",
			Category:    artifact.CategoryPositional,
			Confidence:  artifact.ConfLow,
			Severity:    artifact.SevMinor,
			Beneficiary: beneficiaryOf(winner),
			Explanation: "ahead in piece development",
		})
	}
	return out
}

func developedMinors(b *boardView, color geom.Color) int {
	homeRank := 0
	if color == geom.Black {
		homeRank = 7
	}
	count := 0
	for _, kind := range []geom.Piece{geom.Knight, geom.Bishop} {
		for _, sq := range b.squaresOf(color, kind) {
			if sq.Rank() != homeRank {
				count++
			}
		}
	}
	return count
}

// detectBatteries flags aligned friendly sliders (queen+bishop on a clear
// diagonal, queen+rook or doubled rooks on a clear file/rank) that stack
// pressure along the same line, plus rooks and queens on the seventh rank.
// A queen behind doubled rooks is reported only as its separate pairs.
func detectBatteries(b *boardView) []artifact.DetectedTheme {
	var out []artifact.DetectedTheme
	for color := geom.White; color <= geom.Black; color++ {
		out = append(out, batteryAlong(b, color, geom.Rook, geom.Queen, geom.OrthogonalDirections, "rook_queen_battery")...)
		out = append(out, batteryAlong(b, color, geom.Bishop, geom.Queen, geom.DiagonalDirections, "bishop_queen_battery")...)
		out = append(out, rookDoublingAlong(b, color)...)
		out = append(out, rooksOnSeventh(b, color)...)
	}
	return out
}

func batteryAlong(b *boardView, color geom.Color, minor, major geom.Piece, dirs []geom.Direction, id string) []artifact.DetectedTheme {
	var out []artifact.DetectedTheme
	for _, msq := range b.squaresOf(color, minor) {
		for _, d := range dirs {
			next, p, ok := b.firstOnRay(msq, d)
			if !ok || p.Color != color || p.Kind != major {
				continue
			}
			out = append(out, artifact.DetectedTheme{
				ID:          id,
				Category:    artifact.CategoryTactical,
				Confidence:  artifact.ConfMed,
				Severity:    artifact.SevMinor,
				Beneficiary: beneficiaryOf(color),
				Squares:     sqStrings(msq, next),
				Explanation: fmtExplain("%v on %v and %v on %v form a battery", minor, msq, major, next),
			})
		}
	}
	return out
}

func rookDoublingAlong(b *boardView, color geom.Color) []artifact.DetectedTheme {
	var out []artifact.DetectedTheme
	rooks := b.squaresOf(color, geom.Rook)
	for i := 0; i < len(rooks); i++ {
		for j := i + 1; j < len(rooks); j++ {
			a, c := rooks[i], rooks[j]
			if a.File() != c.File() && a.Rank() != c.Rank() {
				continue
			}
			d, ok := geom.DirectionBetween(a, c)
			if !ok {
				continue
			}
			clear := true
			geom.Ray(a, d, func(cur geom.Square) bool {
				if cur == c {
					return false
				}
				if _, occupied := b.at(cur); occupied {
					clear = false
					return false
				}
				return true
			})
			if clear {
				out = append(out, artifact.DetectedTheme{
					ID:          "doubled_rooks",
					Category:    artifact.CategoryTactical,
					Confidence:  artifact.ConfHigh,
					Severity:    artifact.SevMinor,
					Beneficiary: beneficiaryOf(color),
					Squares:     sqStrings(a, c),
					Explanation: fmtExplain("rooks on %v and %v are doubled", a, c),
				})
			}
		}
	}
	return out
}

func rooksOnSeventh(b *boardView, color geom.Color) []artifact.DetectedTheme {
	var out []artifact.DetectedTheme
	targetRank := 6
	if color == geom.Black {
		targetRank = 1
	}
	for _, kind := range []geom.Piece{geom.Rook, geom.Queen} {
		for _, sq := range b.squaresOf(color, kind) {
			if sq.Rank() != targetRank {
				continue
			}
			out = append(out, artifact.DetectedTheme{
				ID:          "rook_on_seventh",
				Category:    artifact.CategoryPositional,
				Confidence:  artifact.ConfHigh,
				Severity:    artifact.SevSignificant,
				Beneficiary: beneficiaryOf(color),
				Squares:     sqStrings(sq),
				Pieces:      []string{kind.String()},
				Explanation: fmtExplain("%v on %v attacks along the seventh rank", kind, sq),
			})
		}
	}
	return out
}
