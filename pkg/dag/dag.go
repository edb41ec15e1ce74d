// Package dag implements the variation DAG: positions as nodes, moves as
// edges, with transposition-merging on insert. Built as a cyclic graph
// (not a tree) so that transpositions across variations merge into a
// single node -- an arena+index model with opaque
// NodeID/EdgeID handles rather than github.com/herohde/morlock's
// process-global id counters (morlock has none of its own graph, since its
// search is a tree walked by recursion; the arena style here instead
// generalizes morlock's pkg/search/transposition.go idea of a
// position-keyed table, adding a full node/edge arena on top).
package dag

import (
	"fmt"
	"regexp"
	"time"

	"github.com/chessannotate/core/pkg/geom"
	"github.com/chessannotate/core/pkg/poskey"
	"github.com/google/uuid"
	"github.com/seekerror/logw"

	"context"
)

// NodeID and EdgeID are opaque arena handles.
type NodeID uint32
type EdgeID uint32

const noNode NodeID = 0 // arena index 0 is reserved/unused; real nodes start at 1
const noEdge EdgeID = 0

// MoveSource labels how an edge was added to the DAG.
type MoveSource string

const (
	SourcePrimary     MoveSource = "primary"
	SourceExploration MoveSource = "exploration"
	SourceManual      MoveSource = "manual"
)

// Metadata is free-form per-node bookkeeping.
type Metadata struct {
	CreatedAt    time.Time
	LastVisited  time.Time
	VisitCount   int
	Source       MoveSource
	Depth        int
}

// Node is a DAG node: a position, reached by one or more edges.
type Node struct {
	ID               NodeID
	PositionKey      poskey.Key
	FEN              string
	Ply              int
	SideToMove       geom.Color
	ParentEdges      []EdgeID
	ChildEdges       []EdgeID
	ArtifactRefs     []string // opaque references into the artifact store
	DecisionRefs     []string
	PrincipalChild   EdgeID // noEdge if unset
	InterestingMoves []string
	Metadata         Metadata
}

// IsTransposition reports whether this node has more than one parent edge.
func (n Node) IsTransposition() bool { return len(n.ParentEdges) > 1 }

// IsRoot reports whether this node has no parent edges.
func (n Node) IsRoot() bool { return len(n.ParentEdges) == 0 }

// Edge is a DAG edge: one move from one node to another.
type Edge struct {
	ID               EdgeID
	From, To         NodeID
	SAN, UCI         string
	Source           MoveSource
	Comment          string
	NAGs             []int
	MoveAssessmentRef string
	HasAssessmentRef bool
	IsPrincipal      bool
}

// ErrIllegalMove is panicked (not returned) by AddMove when a move cannot
// be applied to the current position: illegal-move insertion is a caller
// bug -- moves must be validated upstream by the position collaborator
// before reaching the DAG.
type ErrIllegalMove struct {
	SAN string
}

func (e *ErrIllegalMove) Error() string { return "illegal move inserted into dag: " + e.SAN }

// ErrUnknownTarget is returned (not panicked) by navigation operations when
// the requested FEN/node is not present in the DAG.
type ErrUnknownTarget struct {
	Target string
}

func (e *ErrUnknownTarget) Error() string { return "dag: unknown navigation target " + e.Target }

// uciPattern recognizes UCI-shaped move strings, e.g. "e2e4" or "e7e8q".
var uciPattern = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][qrbn]?$`)

// Resolver adapts a live position collaborator so AddMove can validate and
// convert moves without the DAG depending on pkg/collab directly (keeping
// the DAG a pure data structure over already-computed FEN/SAN/UCI strings).
type Resolver interface {
	// SANToUCI converts a SAN move to UCI notation in the context of the
	// position that produced fen. Returns an error if illegal.
	SANToUCI(fen, san string) (string, error)
	// UCIToSAN converts a UCI move to SAN notation in the context of fen.
	UCIToSAN(fen, uci string) (string, error)
}

// DAG is the variation DAG for one game analysis.
type DAG struct {
	nodes    []Node // 1-indexed; nodes[0] is a sentinel
	edges    []Edge // 1-indexed; edges[0] is a sentinel
	byKey    map[string][]NodeID
	current  NodeID
	root     NodeID
	resolver Resolver
	lineID   string
}

// New creates a DAG rooted at rootFEN.
func New(rootFEN string, resolver Resolver) (*DAG, error) {
	key, err := poskey.Compute(rootFEN)
	if err != nil {
		return nil, fmt.Errorf("dag: invalid root fen: %w", err)
	}

	d := &DAG{
		nodes:    make([]Node, 1),
		edges:    make([]Edge, 1),
		byKey:    map[string][]NodeID{},
		resolver: resolver,
		lineID:   uuid.NewString(),
	}

	turn := geom.White
	if fields := fieldsOf(rootFEN); len(fields) > 1 && fields[1] == "b" {
		turn = geom.Black
	}

	root := d.newNode(key, rootFEN, 0, turn, SourcePrimary)
	d.root = root
	d.current = root
	return d, nil
}

func fieldsOf(fen string) []string {
	var out []string
	cur := ""
	for _, r := range fen {
		if r == ' ' {
			if cur != "" {
				out = append(out, cur)
				cur = ""
			}
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

func (d *DAG) newNode(key poskey.Key, fen string, ply int, turn geom.Color, source MoveSource) NodeID {
	id := NodeID(len(d.nodes))
	d.nodes = append(d.nodes, Node{
		ID:          id,
		PositionKey: key,
		FEN:         fen,
		Ply:         ply,
		SideToMove:  turn,
		Metadata: Metadata{
			CreatedAt:   time.Now(),
			LastVisited: time.Now(),
			Source:      source,
			Depth:       ply,
		},
	})
	d.byKey[key.String()] = append(d.byKey[key.String()], id)
	return id
}

func (d *DAG) node(id NodeID) *Node  { return &d.nodes[id] }
func (d *DAG) edge(id EdgeID) *Edge  { return &d.edges[id] }

// Root returns the root node ID.
func (d *DAG) Root() NodeID { return d.root }

// Current returns the current navigation position's node ID.
func (d *DAG) Current() NodeID { return d.current }

// Node returns a copy of the node for inspection.
func (d *DAG) Node(id NodeID) (Node, bool) {
	if int(id) <= 0 || int(id) >= len(d.nodes) {
		return Node{}, false
	}
	return d.nodes[id], true
}

// Edge returns a copy of the edge for inspection.
func (d *DAG) Edge(id EdgeID) (Edge, bool) {
	if int(id) <= 0 || int(id) >= len(d.edges) {
		return Edge{}, false
	}
	return d.edges[id], true
}

// AddMoveOptions configures AddMove's side effects.
type AddMoveOptions struct {
	MakePrincipal   bool
	NavigateToChild bool
}

// AddMove is the central DAG mutation. san may be SAN or UCI notation
// (auto-detected); resultingFEN is the position after the move, as already
// computed by the position collaborator.
func (d *DAG) AddMove(ctx context.Context, san, resultingFEN string, source MoveSource, opt AddMoveOptions) (EdgeID, error) {
	cur := d.node(d.current)

	uci := san
	sanForm := san
	if uciPattern.MatchString(san) {
		if d.resolver == nil {
			panic(&ErrIllegalMove{SAN: san})
		}
		converted, err := d.resolver.UCIToSAN(cur.FEN, san)
		if err != nil {
			panic(&ErrIllegalMove{SAN: san})
		}
		sanForm = converted
	} else if d.resolver != nil {
		if converted, err := d.resolver.SANToUCI(cur.FEN, san); err == nil {
			uci = converted
		}
	}

	// (2) De-duplicate: an existing child edge with the same san/uci wins.
	for _, eid := range cur.ChildEdges {
		e := d.edge(eid)
		if e.SAN == sanForm || e.UCI == uci {
			if opt.MakePrincipal {
				d.SetPrincipalChild(d.current, eid)
			}
			if opt.NavigateToChild {
				d.current = e.To
			}
			return eid, nil
		}
	}

	key, err := poskey.Compute(resultingFEN)
	if err != nil {
		panic(&ErrIllegalMove{SAN: san})
	}

	var to NodeID
	if existing := d.findNodeIDByKey(key); existing != noNode {
		// (3) Transposition merge.
		to = existing
		logw.Debugf(ctx, "Transposition merge at ply %v: %v", d.node(to).Ply, key)
	} else {
		// (4) New node.
		to = d.newNode(key, resultingFEN, cur.Ply+1, cur.SideToMove.Opponent(), source)
	}

	eid := EdgeID(len(d.edges))
	d.edges = append(d.edges, Edge{
		ID:     eid,
		From:   d.current,
		To:     to,
		SAN:    sanForm,
		UCI:    uci,
		Source: source,
	})

	cur.ChildEdges = append(cur.ChildEdges, eid)
	toNode := d.node(to)
	toNode.ParentEdges = append(toNode.ParentEdges, eid)

	if opt.MakePrincipal {
		d.SetPrincipalChild(d.current, eid)
	}
	if opt.NavigateToChild {
		d.current = to
	}
	return eid, nil
}

func (d *DAG) findNodeIDByKey(key poskey.Key) NodeID {
	for _, id := range d.byKey[key.String()] {
		if poskey.Equal(d.nodes[id].PositionKey, key) {
			return id
		}
	}
	return noNode
}

// FindNodeByPositionKey returns the node for key, preferring a node on the
// principal path if more than one node shares the key's string form
// (collision-guarded equality still applies).
func (d *DAG) FindNodeByPositionKey(key poskey.Key) (NodeID, bool) {
	candidates := d.byKey[key.String()]
	if len(candidates) == 0 {
		return noNode, false
	}

	principal := map[NodeID]bool{}
	_, nodes := d.PrincipalPath()
	for _, n := range nodes {
		principal[n] = true
	}

	var first NodeID
	for _, id := range candidates {
		if !poskey.Equal(d.nodes[id].PositionKey, key) {
			continue
		}
		if first == noNode {
			first = id
		}
		if principal[id] {
			return id, true
		}
	}
	if first != noNode {
		return first, true
	}
	return noNode, false
}

// SetPrincipalChild clears the node's previous principal edge, if any, and
// marks the given edge as principal. At most one principal child per node.
func (d *DAG) SetPrincipalChild(nodeID NodeID, edgeID EdgeID) {
	n := d.node(nodeID)
	if n.PrincipalChild != noEdge {
		d.edge(n.PrincipalChild).IsPrincipal = false
	}
	n.PrincipalChild = edgeID
	d.edge(edgeID).IsPrincipal = true
}

// PrincipalPath walks principal edges from the root to the first node
// without one, returning the edge and node sequences (nodes includes the root).
func (d *DAG) PrincipalPath() ([]EdgeID, []NodeID) {
	var edges []EdgeID
	nodes := []NodeID{d.root}

	cur := d.root
	for {
		n := d.node(cur)
		if n.PrincipalChild == noEdge {
			break
		}
		edges = append(edges, n.PrincipalChild)
		cur = d.edge(n.PrincipalChild).To
		nodes = append(nodes, cur)
	}
	return edges, nodes
}

// GoToFEN navigates current to the node matching fen's position key.
func (d *DAG) GoToFEN(fen string) error {
	key, err := poskey.Compute(fen)
	if err != nil {
		return fmt.Errorf("dag: %w", err)
	}
	id, ok := d.FindNodeByPositionKey(key)
	if !ok {
		return &ErrUnknownTarget{Target: fen}
	}
	d.current = id
	d.touch(id)
	return nil
}

// GoToNode navigates current to the given node ID.
func (d *DAG) GoToNode(id NodeID) error {
	if int(id) <= 0 || int(id) >= len(d.nodes) {
		return &ErrUnknownTarget{Target: fmt.Sprintf("node#%v", id)}
	}
	d.current = id
	d.touch(id)
	return nil
}

// GoToParent navigates to the current node's parent, preferring the
// principal parent (the parent whose principal child edge leads to
// current) when there is a choice, else the first parent.
func (d *DAG) GoToParent() error {
	n := d.node(d.current)
	if len(n.ParentEdges) == 0 {
		return &ErrUnknownTarget{Target: "root has no parent"}
	}

	for _, eid := range n.ParentEdges {
		e := d.edge(eid)
		if d.node(e.From).PrincipalChild == eid {
			d.current = e.From
			d.touch(d.current)
			return nil
		}
	}
	d.current = d.edge(n.ParentEdges[0]).From
	d.touch(d.current)
	return nil
}

// GoToRoot navigates current to the root node.
func (d *DAG) GoToRoot() {
	d.current = d.root
	d.touch(d.root)
}

func (d *DAG) touch(id NodeID) {
	n := d.node(id)
	n.Metadata.LastVisited = time.Now()
	n.Metadata.VisitCount++
}

// Stats summarizes the DAG's shape.
type Stats struct {
	NodeCount           int
	EdgeCount           int
	TranspositionCount  int
	MaxPly              int
}

// Stats computes node/edge/transposition counts and max ply.
func (d *DAG) Stats() Stats {
	var s Stats
	s.NodeCount = len(d.nodes) - 1
	s.EdgeCount = len(d.edges) - 1
	for i := 1; i < len(d.nodes); i++ {
		if d.nodes[i].IsTransposition() {
			s.TranspositionCount++
		}
		if d.nodes[i].Ply > s.MaxPly {
			s.MaxPly = d.nodes[i].Ply
		}
	}
	return s
}
