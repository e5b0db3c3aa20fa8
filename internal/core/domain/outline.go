package domain

// OutlineNode is one node of a bid outline.
// Chapters sit at depth 1, groupings at depth 2, leaf sections at depth 3.
// Only leaves carry generated Content.
type OutlineNode struct {
	// ID is a dotted position path ("2", "2.1", "2.1.3") assigned when the
	// mold is built and never regenerated.
	ID string `json:"id" yaml:"id"`

	// Title is the node heading.
	Title string `json:"title" yaml:"title"`

	// Description is a short statement of what the node covers.
	Description string `json:"description" yaml:"description"`

	// Content is the generated prose (leaves only).
	Content string `json:"content,omitempty" yaml:"content,omitempty"`

	// Children are the ordered sub-nodes; empty for a leaf.
	Children []*OutlineNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// IsLeaf reports whether the node has no children.
func (n *OutlineNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// Walk visits the node and its descendants depth-first in document order.
// Returning false from fn stops the walk below that node.
func (n *OutlineNode) Walk(fn func(node *OutlineNode, depth int) bool) {
	n.walk(fn, 1)
}

func (n *OutlineNode) walk(fn func(node *OutlineNode, depth int) bool, depth int) {
	if !fn(n, depth) {
		return
	}
	for _, child := range n.Children {
		child.walk(fn, depth+1)
	}
}

// Leaves returns the leaf nodes in document order.
func (n *OutlineNode) Leaves() []*OutlineNode {
	var leaves []*OutlineNode
	n.Walk(func(node *OutlineNode, _ int) bool {
		if node.IsLeaf() {
			leaves = append(leaves, node)
		}
		return true
	})
	return leaves
}

// NodeCount returns the number of nodes in the subtree, including n.
func (n *OutlineNode) NodeCount() int {
	count := 0
	n.Walk(func(*OutlineNode, int) bool {
		count++
		return true
	})
	return count
}

// Clone returns a deep copy of the subtree.
func (n *OutlineNode) Clone() *OutlineNode {
	if n == nil {
		return nil
	}
	c := &OutlineNode{
		ID:          n.ID,
		Title:       n.Title,
		Description: n.Description,
		Content:     n.Content,
	}
	if len(n.Children) > 0 {
		c.Children = make([]*OutlineNode, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

// Brief returns the node without children or content, as used in prompts.
func (n *OutlineNode) Brief() NodeBrief {
	return NodeBrief{ID: n.ID, Title: n.Title, Description: n.Description}
}

// NodeBrief is the id/title/description triple passed as prompt context.
type NodeBrief struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// SkeletonMold is the blank tree a chapter's structure must be generated into.
// The chapter title is pre-filled; every other text field is empty.
type SkeletonMold struct {
	// Index is the zero-based chapter position.
	Index int

	// LeafSlots is the number of depth-3 leaves in Root.
	LeafSlots int

	// Root is the chapter node.
	Root *OutlineNode
}

// Outline is the final artifact: ordered chapters for one project.
type Outline struct {
	// Overview is the project description the outline was generated for.
	Overview string `json:"overview,omitempty" yaml:"overview,omitempty"`

	// Chapters are the top-level nodes in input order.
	Chapters []*OutlineNode `json:"outline" yaml:"outline"`
}

// Find returns the node with the given ID, or nil.
func (o *Outline) Find(id string) *OutlineNode {
	var found *OutlineNode
	for _, chapter := range o.Chapters {
		chapter.Walk(func(node *OutlineNode, _ int) bool {
			if found != nil {
				return false
			}
			if node.ID == id {
				found = node
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}

// LeafCount returns the number of leaves across all chapters.
func (o *Outline) LeafCount() int {
	total := 0
	for _, chapter := range o.Chapters {
		total += len(chapter.Leaves())
	}
	return total
}

// ChapterTitle maps one scoring requirement to a first-level heading.
type ChapterTitle struct {
	// RatingItem is the scoring criterion the chapter answers.
	RatingItem string `json:"rating_item" yaml:"rating_item"`

	// Title is the chapter heading.
	Title string `json:"new_title" yaml:"new_title"`
}
