package providersdk

import (
	"bytes"
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/idbridge/pkg/jwtx"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

const opPublicKey = "public_key"

// FetchPublicKey downloads the provider's signing key and returns it as PKIX
// PEM. The endpoint may serve PEM directly, a single JWK or a JWK set; for a
// set the first RSA key wins.
func (c *Client) FetchPublicKey(ctx context.Context, target string) ([]byte, error) {
	resp, body, err := c.doRequest(ctx, opPublicKey, http.MethodGet, target, nil, nil)
	if err != nil {
		return nil, err
	}
	if err := parseErrorResponse(opPublicKey, resp, body); err != nil {
		return nil, err
	}

	pub, err := decodePublicKey(body)
	if err != nil {
		return nil, &Error{
			Op:     opPublicKey,
			Kind:   KindUpstream,
			Status: resp.StatusCode,
			Reason: err.Error(),
			Body:   body,
		}
	}

	return jwtx.EncodePublicKeyPEM(pub)
}

func decodePublicKey(body []byte) (*rsa.PublicKey, error) {
	trimmed := bytes.TrimSpace(body)
	if bytes.HasPrefix(trimmed, []byte("-----BEGIN")) {
		return jwtx.ParsePublicKeyPEM(trimmed)
	}

	set, err := jwk.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse JWK: %w", err)
	}

	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok {
			continue
		}

		var raw any
		if err := jwk.Export(key, &raw); err != nil {
			continue
		}

		switch k := raw.(type) {
		case *rsa.PublicKey:
			return k, nil
		case *rsa.PrivateKey:
			return &k.PublicKey, nil
		}
	}

	return nil, errors.New("no RSA key in JWK set")
}
