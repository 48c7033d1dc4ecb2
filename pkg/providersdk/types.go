package providersdk

import "encoding/json"

// StatusOK is the envelope status the provider uses for success.
const StatusOK = "ok"

// Person is the identity block of a profile, the provider's "persona".
type Person struct {
	Document   string `json:"documento"`
	GivenName  string `json:"nombre"`
	FamilyName string `json:"apellido"`
	Verified   bool   `json:"validado"`
}

// Profile is what the provider returns for a permission id. Person is always
// present; everything the permission unlocks is kept verbatim in Attributes so
// it can be passed through to the caller.
type Profile struct {
	Person     Person
	Attributes map[string]any
}

// Supplement carries the local claims merged into a re-issued token.
type Supplement struct {
	AccountID int64  `json:"id"`
	RoleID    int    `json:"tipo_usuario_id"`
	AreaID    *int64 `json:"area_id,omitempty"`
}

type profileResponse struct {
	Status  string          `json:"status"`
	Mensaje string          `json:"mensaje,omitempty"`
	Datos   json.RawMessage `json:"datos"`
}

type reissueRequest struct {
	Datos Supplement `json:"datos"`
}

type reissueResponse struct {
	Status  string `json:"status"`
	Mensaje string `json:"mensaje,omitempty"`
	Token   string `json:"token"`
}
