package auth

import "slices"

// User is the signed-in user as reported by the backend.
type User struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// Clone returns a deep copy of u. A nil permission list stays nil.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.Permissions = slices.Clone(u.Permissions)
	return &out
}

// Context is the source of the current user for permission-gated UI.
type Context interface {
	IsAuthenticated() bool
	User() *User
}

// PermissionSet is a set of permission keys.
type PermissionSet map[string]struct{}

func NewPermissionSet(keys ...string) PermissionSet {
	set := make(PermissionSet, len(keys))
	for _, key := range keys {
		if key != "" {
			set[key] = struct{}{}
		}
	}
	return set
}

func (s PermissionSet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Static is a Context with a fixed user.
type Static struct {
	user *User
}

func NewStatic(user *User) *Static {
	return &Static{user: user.Clone()}
}

func (s *Static) IsAuthenticated() bool {
	return s != nil && s.user != nil
}

func (s *Static) User() *User {
	if s == nil {
		return nil
	}
	return s.user.Clone()
}
