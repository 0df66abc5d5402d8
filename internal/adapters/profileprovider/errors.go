package profileprovider

import "errors"

var (
	// ErrUpstreamBadResponse marks responses the upstream should never produce.
	ErrUpstreamBadResponse = errors.New("bad upstream response")
	// ErrUpstreamRatelimit marks refusals due to upstream quota, ours or theirs.
	ErrUpstreamRatelimit = errors.New("upstream ratelimit exceeded")
)
