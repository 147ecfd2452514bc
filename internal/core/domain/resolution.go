package domain

// Resolution is the effective capability of one user: the union over every
// active role the user holds.
type Resolution struct {
	UserID      string      `json:"user_id"`
	Roles       KeySet      `json:"roles"`
	Permissions KeySet      `json:"permissions"`
	Menus       []*MenuNode `json:"menus"`
}

// EmptyResolution is what a user without any active role resolves to.
func EmptyResolution(userID string) *Resolution {
	return &Resolution{
		UserID:      userID,
		Roles:       NewKeySet(),
		Permissions: NewKeySet(),
		Menus:       []*MenuNode{},
	}
}
