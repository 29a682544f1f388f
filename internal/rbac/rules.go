package rbac

// RolePermissions is the default policy.
var RolePermissions = map[string][]string{
	"viewer": {
		"exam:view",
		"results:view",
	},
	"admin": {
		"*", // everything
	},
}
