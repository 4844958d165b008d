package models

import (
	"errors"
	"strings"
)

// UserRole is the worker role stored on a VisitSession.
type UserRole string

const (
	RoleForeman UserRole = "foreman"
	RoleSSK     UserRole = "ssk" // construction supervision
	RoleIKO     UserRole = "iko" // external inspection
)

var ErrUnknownRole = errors.New("unknown role")

// UploadRoute selects the storage endpoint family for a role.
type UploadRoute int

const (
	UploadForemanVisit UploadRoute = iota
	UploadViolation
)

type roleInfo struct {
	Route      UploadRoute
	StorageTag string
	Display    string
}

// roles is the single place role-dependent decisions are looked up.
var roles = map[UserRole]roleInfo{
	RoleForeman: {Route: UploadForemanVisit, StorageTag: "foreman", Display: "Прораб"},
	RoleSSK:     {Route: UploadViolation, StorageTag: "ССК", Display: "ССК"},
	RoleIKO:     {Route: UploadViolation, StorageTag: "ИКО", Display: "ИКО"},
}

// externalAliases maps roles reported by the identity provider onto ledger roles.
var externalAliases = map[string]UserRole{
	"admin": RoleForeman,
}

// Roles lists the valid ledger roles in a stable order.
func Roles() []UserRole {
	return []UserRole{RoleForeman, RoleSSK, RoleIKO}
}

// ParseRole accepts only ledger roles, case-insensitively.
func ParseRole(s string) (UserRole, error) {
	r := UserRole(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := roles[r]; !ok {
		return "", ErrUnknownRole
	}
	return r, nil
}

// NormalizeExternalRole maps an identity-provider role onto a ledger role.
func NormalizeExternalRole(s string) (UserRole, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if alias, ok := externalAliases[key]; ok {
		return alias, nil
	}
	return ParseRole(key)
}

func (r UserRole) Valid() bool {
	_, ok := roles[r]
	return ok
}

func (r UserRole) UploadRoute() UploadRoute {
	return roles[r].Route
}

// StorageTag is the path segment the storage service expects for the role.
func (r UserRole) StorageTag() string {
	if info, ok := roles[r]; ok {
		return info.StorageTag
	}
	return string(r)
}

func (r UserRole) DisplayName() string {
	if info, ok := roles[r]; ok {
		return info.Display
	}
	return string(r)
}
