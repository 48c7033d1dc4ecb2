package providersdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

const opExchange = "exchange"

// ExchangeCode trades an authorization code for an access token using the
// authorization_code grant, client credentials in the form body.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	rec := &recordingTransport{base: c.httpClient().Transport}
	hc := *c.httpClient()
	hc.Transport = rec
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &hc)

	tok, err := c.oauthConfig().Exchange(ctx, code)
	if err != nil {
		return "", classifyExchange(err, rec)
	}

	return tok.AccessToken, nil
}

func (c *Client) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.url("/token"),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// classifyExchange maps oauth2 failures onto the three provider kinds. The
// oauth2 package flattens transport errors into strings, so whether a
// response arrived at all is taken from the recording transport.
func classifyExchange(err error, rec *recordingTransport) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		var envelope ErrorResponse
		_ = json.Unmarshal(re.Body, &envelope)

		reason := envelope.reason()
		if reason == "" {
			reason = re.ErrorDescription
		}
		if reason == "" {
			reason = re.ErrorCode
		}

		status := re.Response.StatusCode
		if status >= 400 && status < 500 && reason != "" {
			return &Error{Op: opExchange, Kind: KindRejected, Status: status, Reason: reason}
		}
		if reason == "" {
			reason = http.StatusText(status)
		}
		return &Error{Op: opExchange, Kind: KindUpstream, Status: status, Reason: reason, Body: re.Body}
	}

	if !rec.responded {
		return unreachable(opExchange, err)
	}

	// A 2xx without a token: the provider's own status envelope said no.
	var envelope ErrorResponse
	_ = json.Unmarshal(rec.body, &envelope)
	reason := envelope.reason()
	if reason == "" {
		reason = "provider did not issue a token"
	}
	return &Error{Op: opExchange, Kind: KindRejected, Status: rec.status, Reason: reason}
}

// recordingTransport remembers whether a response came back and keeps a copy
// of its body. One per call; not shared.
type recordingTransport struct {
	base      http.RoundTripper
	responded bool
	status    int
	body      []byte
}

func (t *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}

	t.responded = true
	t.status = resp.StatusCode
	t.body = raw
	resp.Body = io.NopCloser(bytes.NewReader(raw))
	return resp, nil
}
