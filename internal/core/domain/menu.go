package domain

import "time"

// Menu is one node of the navigation tree. ParentID is empty for top-level
// entries.
type Menu struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Path          string     `json:"path"`
	Icon          string     `json:"icon,omitempty"`
	PermissionKey string     `json:"permission_key,omitempty"`
	ParentID      string     `json:"parent_id,omitempty"`
	Sort          int        `json:"sort"`
	IsVisible     bool       `json:"is_visible"`
	IsEnabled     bool       `json:"is_enabled"`
	IsDeleted     bool       `json:"-"`
	DeletedAt     *time.Time `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Shown reports whether the menu belongs in a user's navigation tree.
func (m *Menu) Shown() bool {
	return m != nil && !m.IsDeleted && m.IsVisible && m.IsEnabled
}

func (m *Menu) Snapshot() map[string]any {
	if m == nil {
		return nil
	}
	return map[string]any{
		"id":             m.ID,
		"name":           m.Name,
		"path":           m.Path,
		"icon":           m.Icon,
		"permission_key": m.PermissionKey,
		"parent_id":      m.ParentID,
		"sort":           m.Sort,
		"is_visible":     m.IsVisible,
		"is_enabled":     m.IsEnabled,
	}
}

// MenuSort is one entry of a bulk reorder.
type MenuSort struct {
	ID   string `json:"id" validate:"required"`
	Sort int    `json:"sort"`
}

// ParentIndex maps menu id to parent id for every menu with a parent.
func ParentIndex(menus []*Menu) map[string]string {
	idx := make(map[string]string, len(menus))
	for _, m := range menus {
		if m != nil && m.ParentID != "" {
			idx[m.ID] = m.ParentID
		}
	}
	return idx
}

// WouldCreateCycle reports whether re-parenting menuID under proposedParentID
// would make menuID its own ancestor. parentOf holds the current parent of
// every menu that has one.
//
// The walk never loops forever: an ancestor chain that revisits an id, or
// runs longer than the number of known links, is treated as a cycle.
func WouldCreateCycle(menuID, proposedParentID string, parentOf map[string]string) bool {
	if proposedParentID == "" {
		return false
	}
	if proposedParentID == menuID {
		return true
	}

	visited := make(map[string]struct{}, len(parentOf)+1)
	limit := len(parentOf) + 1
	for cur, steps := proposedParentID, 0; cur != ""; cur, steps = parentOf[cur], steps+1 {
		if cur == menuID {
			return true
		}
		if _, seen := visited[cur]; seen || steps > limit {
			return true
		}
		visited[cur] = struct{}{}
	}
	return false
}
