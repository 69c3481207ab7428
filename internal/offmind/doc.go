// Package offmind is the authenticated client for the Offmind proxy API.
//
// Every operation obtains a bearer token from the credential manager before
// sending. When the proxy rejects a token with HTTP 401 the client performs
// exactly one forced refresh-and-retry; a second 401 surfaces
// auth.ErrAuthenticationFailed and is never retried further. Domain
// rejections (other 4xx) surface as *APIError and are not retried.
//
// The proxy stores collections in Firebase, which encodes them as a JSON
// array when keys are numeric and as an object keyed by ID otherwise. The
// decoders in this package normalize both shapes into ordered slices.
package offmind
