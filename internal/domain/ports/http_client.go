package ports

import "net/http"

// HTTPClient is the transport the provider adapter sends requests through.
// *http.Client satisfies it; tests substitute their own.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
