package explore

import (
	"container/heap"

	"github.com/chessannotate/core/pkg/artifact"
)

// Node is a transient exploration-queue entry: one candidate position
// under consideration for deeper analysis. It never outlives one explore()
// call.
type Node struct {
	FEN                 string
	Ply                 int
	CriticalityScore    int
	ExplorationPriority float64
	ExpectedInfoGain    float64
	NoveltyScore        float64
	CostEstimate        float64
	Tier                artifact.Tier
	IsExplored          bool
	IsFrontier          bool
	ExplorationDepth    int
	ParentNodeID        int
	HasParent           bool
	ParentMoveSAN       string
	ParentMoveUCI       string

	id int // this node's own id in the explorer's bookkeeping
}

// priority implements the exploration weighted-sum formula:
// p = (w_c*crit/100 + w_i*info_gain + w_n*novelty - w_cost*cost) * max(0, 1-depth/100) * 100
const (
	weightCriticality = 1.0
	weightInfoGain    = 1.5
	weightNovelty     = 0.8
	weightCost        = 0.3
)

func priority(n *Node) float64 {
	base := weightCriticality*float64(n.CriticalityScore)/100 +
		weightInfoGain*n.ExpectedInfoGain +
		weightNovelty*n.NoveltyScore -
		weightCost*n.CostEstimate

	depthFactor := 1 - float64(n.ExplorationDepth)/100
	if depthFactor < 0 {
		depthFactor = 0
	}
	return base * depthFactor * 100
}

// nodeHeap is a max-heap over Node.ExplorationPriority, grounded on
// github.com/herohde/morlock's pkg/search/movelist.go move-priority heap --
// generalized to support Push (morlock's heap is fixed-size, built once
// from a move list; the explorer grows its queue as it runs).
type nodeHeap []*Node

func (h nodeHeap) Len() int            { return len(h) }
func (h nodeHeap) Less(i, j int) bool  { return h[i].ExplorationPriority > h[j].ExplorationPriority }
func (h nodeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x interface{}) { *h = append(*h, x.(*Node)) }

func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// queue is the priority queue the explore loop pops from.
type queue struct {
	h nodeHeap
}

func newQueue() *queue {
	q := &queue{}
	heap.Init(&q.h)
	return q
}

func (q *queue) push(n *Node) {
	n.ExplorationPriority = priority(n)
	heap.Push(&q.h, n)
}

func (q *queue) pop() (*Node, bool) {
	if q.h.Len() == 0 {
		return nil, false
	}
	return heap.Pop(&q.h).(*Node), true
}

func (q *queue) len() int { return q.h.Len() }

func (q *queue) peekPriority() (float64, bool) {
	if q.h.Len() == 0 {
		return 0, false
	}
	return q.h[0].ExplorationPriority, true
}
