package classify_test

import (
	"testing"

	"github.com/chessannotate/core/pkg/artifact"
	"github.com/chessannotate/core/pkg/classify"
	"github.com/stretchr/testify/assert"
)

func TestClassifyBlunder(t *testing.T) {
	r := classify.Classify(classify.Input{CPDelta: -320})
	assert.Equal(t, artifact.ClassBlunder, r.Classification)
	assert.Equal(t, artifact.NAGBlunder, r.NAG)
	assert.Equal(t, artifact.SevCritical, r.Severity)
	assert.Equal(t, 320, r.CPLoss)
}

func TestClassifyMistake(t *testing.T) {
	r := classify.Classify(classify.Input{CPDelta: -180})
	assert.Equal(t, artifact.ClassMistake, r.Classification)
	assert.Equal(t, artifact.SevSignificant, r.Severity)
}

func TestClassifyInaccuracy(t *testing.T) {
	r := classify.Classify(classify.Input{CPDelta: -70})
	assert.Equal(t, artifact.ClassInaccuracy, r.Classification)
	assert.Equal(t, artifact.SevMinor, r.Severity)
}

func TestClassifyGoodAndExcellent(t *testing.T) {
	good := classify.Classify(classify.Input{CPDelta: -30})
	assert.Equal(t, artifact.ClassGood, good.Classification)
	assert.Equal(t, artifact.SevNeutral, good.Severity)

	excellent := classify.Classify(classify.Input{CPDelta: -5})
	assert.Equal(t, artifact.ClassExcellent, excellent.Classification)
	assert.Equal(t, artifact.NAGGood, excellent.NAG)
}

func TestClassifyForcedAndBookOverrideCPDelta(t *testing.T) {
	forced := classify.Classify(classify.Input{CPDelta: -400, IsForced: true})
	assert.Equal(t, artifact.ClassForced, forced.Classification)
	assert.Equal(t, artifact.NAGForced, forced.NAG)

	book := classify.Classify(classify.Input{CPDelta: -400, IsBook: true})
	assert.Equal(t, artifact.ClassBook, book.Classification)
	assert.Equal(t, artifact.NAGNone, book.NAG)
}

func TestClassifyPositiveDeltaHasZeroCPLoss(t *testing.T) {
	r := classify.Classify(classify.Input{CPDelta: 40})
	assert.Equal(t, 0, r.CPLoss)
	assert.Equal(t, artifact.ClassExcellent, r.Classification)
}
