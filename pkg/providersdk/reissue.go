package providersdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const opReissue = "reissue"

// ReissueToken asks the provider for a new token that also carries the
// supplied local claims.
func (c *Client) ReissueToken(ctx context.Context, token string, supplement Supplement) (string, error) {
	payload, err := json.Marshal(reissueRequest{Datos: supplement})
	if err != nil {
		return "", fmt.Errorf("providersdk: %s: encode request: %w", opReissue, err)
	}

	headers := bearer(token)
	headers["Content-Type"] = "application/json"

	resp, body, err := c.doRequest(ctx, opReissue, http.MethodPost,
		c.url("/nuevo-token"), bytes.NewReader(payload), headers)
	if err != nil {
		return "", err
	}

	var out reissueResponse
	if err := decodeJSON(opReissue, resp, body, &out); err != nil {
		return "", err
	}
	if out.Status != StatusOK || out.Token == "" {
		return "", rejected(opReissue, resp.StatusCode, out.Mensaje)
	}

	return out.Token, nil
}
