package rbac

import "errors"

// Typed errors returned by the store and checker. Boolean predicate queries
// never return these for "no grant" conditions; absence is false, not an
// error.
var (
	// ErrRoleNotFound is returned when an operation references a role id or
	// name that does not exist.
	ErrRoleNotFound = errors.New("role not found")

	// ErrRoleExists is returned when creating or renaming a role would
	// collide with an existing role name.
	ErrRoleExists = errors.New("role already exists")

	// ErrPermissionNotFound is returned when an operation references a
	// permission that does not exist.
	ErrPermissionNotFound = errors.New("permission not found")

	// ErrSystemRole is returned when attempting to rename or delete one of
	// the bootstrap system roles.
	ErrSystemRole = errors.New("system roles cannot be renamed or deleted")

	// ErrInvalidAction is returned for a malformed action value.
	ErrInvalidAction = errors.New("invalid permission action")

	// ErrInvalidResource is returned for a malformed resource value.
	ErrInvalidResource = errors.New("invalid permission resource")

	// ErrMissingUserID is returned when a query is made without a user id.
	// An unknown user id is not an error; a missing one is malformed input.
	ErrMissingUserID = errors.New("user id is required")

	// ErrUnknownCheck is returned by Evaluate for a predicate name that is
	// not in the named check table.
	ErrUnknownCheck = errors.New("unknown named check")
)
