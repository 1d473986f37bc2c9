package auth

import "strings"

// Permission is a single (action, resource) capability. Checks compare the
// pair exactly; the string form exists only for tokens and logs.
type Permission struct {
	Action   string
	Resource string
}

func (p Permission) String() string { return p.Action + ":" + p.Resource }

// ParsePermission parses "action:resource". Anything else is rejected.
func ParsePermission(s string) (Permission, bool) {
	action, resource, ok := strings.Cut(s, ":")
	if !ok || action == "" || resource == "" {
		return Permission{}, false
	}
	return Permission{Action: action, Resource: resource}, true
}

var (
	CreatePost = Permission{Action: "create", Resource: "post"}
	UpdatePost = Permission{Action: "update", Resource: "post"}
	DeletePost = Permission{Action: "delete", Resource: "post"}
)

// Claims is the verified identity and permission set of a request.
type Claims struct {
	Subject     string
	Permissions []Permission
}

func (c *Claims) HasPermission(p Permission) bool {
	if c == nil {
		return false
	}
	for _, have := range c.Permissions {
		if have == p {
			return true
		}
	}
	return false
}

func (c *Claims) HasAnyPermission(ps ...Permission) bool {
	for _, p := range ps {
		if c.HasPermission(p) {
			return true
		}
	}
	return false
}
