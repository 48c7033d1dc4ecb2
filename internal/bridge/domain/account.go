package domain

import "time"

// Account is the local system-of-record user. The bridge reads it and only
// ever writes DisplayName and LastLogin, everything else is owned elsewhere.
type Account struct {
	ID          int64
	Document    string     // national id number, join key to the provider's persona
	RoleID      int        // tipo de usuario
	AreaID      *int64     // organisational area (nullable)
	Active      bool       // inactive accounts never authorize
	DisplayName string     // "APELLIDO, NOMBRE" once synced
	LastLogin   *time.Time // nullable until the first reconcile
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
