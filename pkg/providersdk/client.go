package providersdk

import (
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds every provider round trip unless the caller supplies
// its own http.Client.
const DefaultTimeout = 10 * time.Second

// Client talks to the identity provider. It is safe for concurrent use.
type Client struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	HTTPClient   *http.Client
}

// NewClient creates a provider client with a bounded timeout.
func NewClient(baseURL, clientID, clientSecret string) *Client {
	return &Client{
		BaseURL:      strings.TrimSuffix(baseURL, "/"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}
