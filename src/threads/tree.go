package threads

import (
	"sort"

	"github.com/cdil-bc/canvas-discussions/src/models"
	"github.com/cdil-bc/canvas-discussions/src/oops"
)

// A reply chain that loops back on itself, so it has no place in any tree.
var ErrCycle = oops.New(nil, "discussion replies form a cycle")

/*
Builds the reply trees for the posts of a single topic and returns the
top-level entries.

Each post links its children in exactly one way. A post that carries an
embedded reply list gets exactly those replies as children; any other post
gets the posts whose parent id points at it. Whichever way a post is
claimed first, it is attached only once, so a post that shows up both in
the flat list and in an embedded list still produces a single node.

Posts whose parent can't be found become top-level entries. Posts that
can't be reached from any top-level entry are stuck in a loop of parent
links, which is reported as ErrCycle.
*/
func BuildTree(posts []models.Post) ([]*models.ThreadNode, error) {
	b := newBuilder(posts)

	// Embedded lists take precedence: they are what the API said the replies
	// were.
	for _, id := range b.order {
		post := b.posts[id]
		if !post.HasEmbeddedReplies() {
			continue
		}
		for _, reply := range post.Replies {
			if reply.ID == id {
				return nil, oops.New(ErrCycle, "post %d lists itself as a reply", id)
			}
			if _, claimed := b.parentOf[reply.ID]; !claimed {
				b.parentOf[reply.ID] = id
			}
		}
	}

	for _, id := range b.order {
		if _, claimed := b.parentOf[id]; claimed {
			continue
		}
		post := b.posts[id]
		if post.ParentID == nil {
			continue
		}
		parentID := *post.ParentID
		if parentID == id {
			return nil, oops.New(ErrCycle, "post %d is its own parent", id)
		}
		parent, ok := b.posts[parentID]
		if !ok || parent.HasEmbeddedReplies() {
			// Orphan, or the parent's embedded list doesn't include it.
			// Either way it stays top-level rather than being dropped.
			continue
		}
		b.parentOf[id] = parentID
	}

	children := make(map[int][]int, len(b.order))
	var roots []int
	for _, id := range b.order {
		if parentID, ok := b.parentOf[id]; ok {
			children[parentID] = append(children[parentID], id)
		} else {
			roots = append(roots, id)
		}
	}

	attached := make(map[int]bool, len(b.order))
	var build func(id int) *models.ThreadNode
	build = func(id int) *models.ThreadNode {
		attached[id] = true
		node := &models.ThreadNode{Post: b.posts[id]}
		for _, childID := range children[id] {
			node.Replies = append(node.Replies, build(childID))
		}
		sortNodes(node.Replies)
		return node
	}

	entries := make([]*models.ThreadNode, 0, len(roots))
	for _, id := range roots {
		entries = append(entries, build(id))
	}
	sortNodes(entries)

	if len(attached) != len(b.order) {
		for _, id := range b.order {
			if !attached[id] {
				return nil, oops.New(ErrCycle, "post %d is part of a reply cycle", id)
			}
		}
	}

	return entries, nil
}

type builder struct {
	posts    map[int]models.Post
	order    []int // first-seen order, for determinism
	parentOf map[int]int
}

// Collects every distinct post, including ones that only appear inside
// another post's embedded replies. The first copy of a post seen wins.
func newBuilder(posts []models.Post) *builder {
	b := &builder{
		posts:    make(map[int]models.Post, len(posts)),
		parentOf: make(map[int]int, len(posts)),
	}

	var add func(p models.Post)
	add = func(p models.Post) {
		if _, seen := b.posts[p.ID]; seen {
			return
		}
		b.posts[p.ID] = p
		b.order = append(b.order, p.ID)
	}
	for _, p := range posts {
		add(p)
	}

	// Walk embedded lists breadth-first so deeply embedded replies are found
	// too.
	queue := append([]models.Post(nil), posts...)
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		for _, reply := range p.Replies {
			if _, seen := b.posts[reply.ID]; seen {
				continue
			}
			add(reply)
			queue = append(queue, reply)
		}
	}

	return b
}

func sortNodes(nodes []*models.ThreadNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return models.PostLess(&nodes[i].Post, &nodes[j].Post)
	})
}
