package types

// arenaChunkSize is the number of ASTNode values pre-allocated per arena
// chunk. Most formulas (a handful of operators and names) fit in one chunk.
const arenaChunkSize = 64

// NodeArena is a bump-pointer allocator for ASTNode values, grounded on the
// same tradeoff the parser's hand-written recursive descent already makes
// elsewhere: one chunk allocation instead of one heap allocation per node
// (§9 design note: cyclic/tree data as a pure arena of nodes).
//
// The arena MUST stay alive as long as any pointer returned by Alloc is
// reachable. Expression holds the arena it was built with, so the GC frees
// it only once the Expression (and any cache entry referencing it) is gone.
//
// NodeArena is not safe for concurrent use; each Parser owns one and never
// shares it across goroutines.
type NodeArena struct {
	chunks [][]ASTNode
	pos    int
}

// NewNodeArena allocates an arena pre-warmed with one chunk.
func NewNodeArena() *NodeArena {
	return &NodeArena{chunks: [][]ASTNode{make([]ASTNode, arenaChunkSize)}}
}

// Alloc returns a pointer to a zero-valued ASTNode with Kind and Position
// set; all other fields must be filled by the caller.
func (a *NodeArena) Alloc(kind NodeKind, position int) *ASTNode {
	if a.pos >= arenaChunkSize {
		a.chunks = append(a.chunks, make([]ASTNode, arenaChunkSize))
		a.pos = 0
	}
	n := &a.chunks[len(a.chunks)-1][a.pos]
	a.pos++
	n.Kind = kind
	n.Position = position
	return n
}
