/*
Package providersdk is a client for the upstream identity provider the bridge fronts.

# Overview

The provider speaks a small, fixed contract: an OAuth2 authorization_code token
endpoint, a profile endpoint keyed by a permission id, and a re-issue endpoint that
mints a new token carrying local claims. Every call is a single round trip with no
retry; retry policy belongs to the caller.

	client := providersdk.NewClient("https://provider.example.com/api", clientID, clientSecret)

	token, err := client.ExchangeCode(ctx, "abc123")
	profile, err := client.FetchProfile(ctx, token, "1")
	fresh, err := client.ReissueToken(ctx, token, providersdk.Supplement{AccountID: 42, RoleID: 4})

The bootstrap command also uses FetchPublicKey to download the provider's signing key
(PEM or JWK) before the bridge starts.

# Error Handling

Every failure is a *Error whose Kind is one of:

  - KindUnreachable: no response was received (DNS, connect, timeout, cancellation)
  - KindRejected: the provider answered and refused (status != "ok", invalid_grant, ...)
  - KindUpstream: any other non-2xx answer, with Status and Body kept for logs

Match them with errors.Is:

	if errors.Is(err, providersdk.ErrRejected) {
		// code expired or already used
	}
*/
package providersdk
