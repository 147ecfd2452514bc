package domain

import "sort"

// MenuNode is a Menu placed in a forest.
type MenuNode struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Path          string      `json:"path"`
	Icon          string      `json:"icon,omitempty"`
	PermissionKey string      `json:"permission_key,omitempty"`
	ParentID      string      `json:"parent_id,omitempty"`
	Sort          int         `json:"sort"`
	Children      []*MenuNode `json:"children"`
}

func newMenuNode(m *Menu) *MenuNode {
	return &MenuNode{
		ID:            m.ID,
		Name:          m.Name,
		Path:          m.Path,
		Icon:          m.Icon,
		PermissionKey: m.PermissionKey,
		ParentID:      m.ParentID,
		Sort:          m.Sort,
		Children:      []*MenuNode{},
	}
}

// SortMenus orders menus by Sort, then ID.
func SortMenus(menus []*Menu) {
	sort.SliceStable(menus, func(i, j int) bool {
		if menus[i].Sort != menus[j].Sort {
			return menus[i].Sort < menus[j].Sort
		}
		return menus[i].ID < menus[j].ID
	})
}

// BuildForest arranges menus into trees in a single pass. A menu whose
// parent is not part of the input becomes a root. Siblings are ordered by
// Sort, then ID. If the parent links contain a loop, the link that would
// close it is dropped and that menu is promoted to a root, so the result is
// always acyclic. Duplicate ids keep their first occurrence.
func BuildForest(menus []*Menu) []*MenuNode {
	nodes := make(map[string]*MenuNode, len(menus))
	ordered := make([]*Menu, 0, len(menus))
	for _, m := range menus {
		if m == nil {
			continue
		}
		if _, dup := nodes[m.ID]; dup {
			continue
		}
		nodes[m.ID] = newMenuNode(m)
		ordered = append(ordered, m)
	}
	SortMenus(ordered)

	// linked holds only accepted child->parent edges and is therefore acyclic.
	linked := make(map[string]string, len(ordered))
	roots := make([]*MenuNode, 0)
	for _, m := range ordered {
		node := nodes[m.ID]
		parent, ok := nodes[m.ParentID]
		if !ok || reaches(linked, m.ParentID, m.ID) {
			roots = append(roots, node)
			continue
		}
		linked[m.ID] = m.ParentID
		parent.Children = append(parent.Children, node)
	}
	return roots
}

func reaches(linked map[string]string, from, target string) bool {
	for cur := from; cur != ""; cur = linked[cur] {
		if cur == target {
			return true
		}
	}
	return false
}

// Walk visits every node depth-first. Returning false stops the walk.
func Walk(forest []*MenuNode, fn func(*MenuNode) bool) bool {
	for _, n := range forest {
		if !fn(n) || !Walk(n.Children, fn) {
			return false
		}
	}
	return true
}

// ContainsPath reports whether any node in the forest has the given path.
func ContainsPath(forest []*MenuNode, path string) bool {
	found := false
	Walk(forest, func(n *MenuNode) bool {
		found = n.Path == path
		return !found
	})
	return found
}

// PruneEmptyBranches drops pathless nodes that are left without children,
// bottom-up. Leaves with a path are always kept.
func PruneEmptyBranches(forest []*MenuNode) []*MenuNode {
	out := make([]*MenuNode, 0, len(forest))
	for _, n := range forest {
		n.Children = PruneEmptyBranches(n.Children)
		if len(n.Children) > 0 || n.Path != "" {
			out = append(out, n)
		}
	}
	return out
}
