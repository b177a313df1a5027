package models

//nolint:gosec //file not handles sensitive data
const (
	MwUserIDKey          = "user_id"
	MwUsernameKey        = "username"
	MwIsAuthenticatedKey = "is_authenticated"
	MwPrincipalKey       = "principal"
)
