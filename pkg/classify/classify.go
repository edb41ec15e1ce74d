// Package classify assigns a move-quality bucket from a cp-delta. Grounded
// on github.com/herohde/morlock's pkg/eval score
// banding (discrete cp thresholds mapping to named bands), generalized
// into the classification/NAG/severity triple this analysis core needs.
package classify

import "github.com/chessannotate/core/pkg/artifact"

// Input bundles the classifier's inputs for one move.
type Input struct {
	CPDelta    int  // signed, relative to the side that moved; negative is worse
	IsBook     bool // move matched an opening-book line
	IsForced   bool // exactly one legal move, or a forced mate sequence
	IsBrilliant bool // upstream detector flagged a sacrifice/only-good-move shot
}

// Result is the classifier's output.
type Result struct {
	Classification artifact.Classification
	NAG            artifact.NAG
	Severity       artifact.Severity
	CPLoss         int
}

// Classify buckets a move by its cp-delta and auxiliary tags into one of
// the eight named classifications, with its NAG and severity.
func Classify(in Input) Result {
	cpLoss := 0
	if in.CPDelta < 0 {
		cpLoss = -in.CPDelta
	}

	class, nag := classifyBucket(in, cpLoss)
	return Result{
		Classification: class,
		NAG:            nag,
		Severity:       severityFor(class, cpLoss),
		CPLoss:         cpLoss,
	}
}

func classifyBucket(in Input, cpLoss int) (artifact.Classification, artifact.NAG) {
	switch {
	case in.IsForced:
		return artifact.ClassForced, artifact.NAGForced
	case in.IsBook:
		return artifact.ClassBook, artifact.NAGNone
	case in.IsBrilliant:
		return artifact.ClassBrilliant, artifact.NAGBrilliant
	case cpLoss >= 300:
		return artifact.ClassBlunder, artifact.NAGBlunder
	case cpLoss >= 150:
		return artifact.ClassMistake, artifact.NAGMistake
	case cpLoss >= 50:
		return artifact.ClassInaccuracy, artifact.NAGInaccuracy
	case cpLoss <= 10:
		return artifact.ClassExcellent, artifact.NAGGood
	default:
		return artifact.ClassGood, artifact.NAGNone
	}
}

// severityFor applies the severity rule: blunder is always
// critical; mistake or cp_loss>=150 is significant; inaccuracy or
// cp_loss>=50 is minor; everything else is SevNeutral (below the minor
// bar).
func severityFor(class artifact.Classification, cpLoss int) artifact.Severity {
	switch {
	case class == artifact.ClassBlunder:
		return artifact.SevCritical
	case class == artifact.ClassMistake || cpLoss >= 150:
		return artifact.SevSignificant
	case class == artifact.ClassInaccuracy || cpLoss >= 50:
		return artifact.SevMinor
	default:
		return artifact.SevNeutral
	}
}
