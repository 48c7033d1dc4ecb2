package providersdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

const opProfile = "profile"

// FetchProfile loads the profile data the given permission id unlocks.
func (c *Client) FetchProfile(ctx context.Context, token, permisoID string) (*Profile, error) {
	resp, body, err := c.doRequest(ctx, opProfile, http.MethodGet,
		c.url("/datos/"+url.PathEscape(permisoID)), nil, bearer(token))
	if err != nil {
		return nil, err
	}

	var envelope profileResponse
	if err := decodeJSON(opProfile, resp, body, &envelope); err != nil {
		return nil, err
	}
	if envelope.Status != StatusOK {
		return nil, rejected(opProfile, resp.StatusCode, envelope.Mensaje)
	}

	var datos struct {
		Persona *Person `json:"persona"`
	}
	attrs := map[string]any{}
	if err := json.Unmarshal(envelope.Datos, &datos); err != nil || datos.Persona == nil {
		return nil, &Error{
			Op:     opProfile,
			Kind:   KindUpstream,
			Status: resp.StatusCode,
			Reason: "profile without persona",
			Body:   body,
		}
	}
	_ = json.Unmarshal(envelope.Datos, &attrs)

	return &Profile{Person: *datos.Persona, Attributes: attrs}, nil
}

func rejected(op string, status int, mensaje string) *Error {
	if mensaje == "" {
		mensaje = "provider reported a non-ok status"
	}
	return &Error{Op: op, Kind: KindRejected, Status: status, Reason: mensaje}
}
