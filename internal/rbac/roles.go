package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleUser    = "user"
	RoleAdmin   = "admin"
	RoleService = "service" // internal jobs and webhooks; hidden role
)

func IsAdmin(role string) bool { return role == RoleAdmin }

func IsHiddenRole(role string) bool { return role == RoleService }
