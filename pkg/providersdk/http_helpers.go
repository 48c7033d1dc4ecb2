package providersdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxBodyBytes caps how much of a provider response we hold in memory.
const maxBodyBytes = 1 << 20

// url builds a complete URL by appending the path to the base URL.
func (c *Client) url(path string) string {
	return c.BaseURL + path
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// doRequest performs a single request and reads the whole body. Transport
// failures come back as KindUnreachable; status handling is left to the caller.
func (c *Client) doRequest(
	ctx context.Context,
	op, method, target string,
	body io.Reader,
	headers map[string]string,
) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, nil, fmt.Errorf("providersdk: %s: create request: %w", op, err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, nil, unreachable(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, nil, unreachable(op, fmt.Errorf("read response body: %w", err))
	}

	return resp, raw, nil
}

// decodeJSON checks the status and decodes a 2xx body into target. A 2xx
// body that is not JSON is an upstream fault.
func decodeJSON(op string, resp *http.Response, body []byte, target any) error {
	if err := parseErrorResponse(op, resp, body); err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		return &Error{
			Op:     op,
			Kind:   KindUpstream,
			Status: resp.StatusCode,
			Reason: "undecodable response: " + err.Error(),
			Body:   body,
		}
	}

	return nil
}

func bearer(token string) map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + token,
		"Accept":        "application/json",
	}
}
