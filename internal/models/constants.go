package models

// File permissions
const (
	PermissionOutputFile = 0600
	PermissionDirectory  = 0750
)
