package models

import "github.com/golang-jwt/jwt/v5"

// Application permissions
const (
	PermissionReadAdmin  = "admin:read"
	PermissionWriteAdmin = "admin:write"

	PermissionWalletRead   = "wallet:read"
	PermissionWalletWrite  = "wallet:write"
	PermissionDepositRead  = "deposit:read"
	PermissionDepositWrite = "deposit:write"
)

type UserClaims struct {
	jwt.RegisteredClaims
	UserID       uint     `json:"user_id"`
	Email        string   `json:"email"`
	Role         string   `json:"role"`
	Permissions  []string `json:"permissions"`
	TokenVersion int      `json:"token_version"`
}

// HasPermission checks if the claims include a specific permission.
func (c *UserClaims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// GetDefaultPermissions returns default permissions based on role.
func GetDefaultPermissions(role string) []string {
	base := []string{
		PermissionWalletRead, PermissionWalletWrite,
		PermissionDepositRead, PermissionDepositWrite,
	}
	if role == "admin" {
		return append(base, PermissionReadAdmin, PermissionWriteAdmin)
	}
	return base
}
