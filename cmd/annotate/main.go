// annotate reads a PGN file and prints an annotated copy to stdout: engine
// evaluations, move classifications and plain-language commentary woven in
// as PGN comments, plus a per-game summary header.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/chessannotate/core/pkg/cache"
	"github.com/chessannotate/core/pkg/orchestrator"
	"github.com/chessannotate/core/pkg/refboard"
	"github.com/seekerror/logw"
)

var (
	verbosity    = flag.String("verbosity", "normal", "Commentary density: summary, normal, or rich")
	skipLLM      = flag.Bool("skip-llm", false, "Use template-only commentary, no LLM calls")
	annotateAll  = flag.Bool("agentic", false, "Consider every ply for exploration, not only critical moments")
	maxToolCalls = flag.Int("max-tool-calls", 0, "Reserved for future agentic tool-call budgets; currently unused")
	targetRating = flag.Int("target-rating", 0, "Rating to model human-popular-move predictions against (0 disables)")
)

func init() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `usage: annotate [options] <pgn-file>

annotate is a chess-game annotation core. It reads one or more games from
a PGN file and writes an annotated copy to stdout.

Options:
`)
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	ctx := context.Background()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(3)
	}
	path := flag.Arg(0)

	v := orchestrator.Verbosity(*verbosity)
	switch v {
	case orchestrator.VerbositySummary, orchestrator.VerbosityNormal, orchestrator.VerbosityRich:
	default:
		logw.Errorf(ctx, "annotate: invalid -verbosity %q", *verbosity)
		os.Exit(3)
	}

	_ = maxToolCalls // not yet wired to any per-game budget

	raw, err := os.ReadFile(path)
	if err != nil {
		logw.Errorf(ctx, "annotate: %v", err)
		os.Exit(1)
	}

	deps := orchestrator.Deps{
		PGN:         refboard.PGN{},
		Engine:      &refboard.Engine{},
		NewPosition: refboard.NewPosition,
		Cache:       cache.NewDefaultStore(),
	}
	opt := orchestrator.Options{
		Verbosity:    v,
		SkipLLM:      *skipLLM,
		AnnotateAll:  *annotateAll,
		TargetRating: *targetRating,
	}

	logw.Infof(ctx, "%v", orchestrator.Version())

	results, err := orchestrator.Run(ctx, deps, opt, string(raw))
	if err != nil {
		logw.Errorf(ctx, "annotate: %v", err)
		os.Exit(1)
	}

	failed := 0
	for i, r := range results {
		if r.Err != nil {
			logw.Errorf(ctx, "annotate: game %v: %v", i, r.Err)
			failed++
			continue
		}
		fmt.Println(r.AnnotatedPGN)
	}
	if failed > 0 {
		os.Exit(2)
	}
}
