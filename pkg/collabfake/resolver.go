// Package collabfake provides small, deterministic fakes for the external
// collaborators declared in pkg/collab, for use in tests across the
// analysis core. None of these fakes implement real chess rules -- they
// only return canned or pass-through data so tests can exercise the core's
// own logic without a live engine, PGN module or LLM.
package collabfake

// Resolver is a pass-through dag.Resolver: it treats SAN and UCI as
// interchangeable strings, which is sufficient for DAG tests that only
// care about transposition-merging and navigation, not real notation.
type Resolver struct{}

func NewResolver() *Resolver { return &Resolver{} }

func (r *Resolver) SANToUCI(fen, san string) (string, error) { return san, nil }
func (r *Resolver) UCIToSAN(fen, uci string) (string, error) { return uci, nil }
