package session

import "errors"

var (
	// ErrNoToken reports that the store holds no cached token. It is part
	// of the normal first-run path, not a failure.
	ErrNoToken = errors.New("no cached session token")

	// ErrAuth reports that no usable token could be obtained: the cached
	// token failed validation and the host refused to issue a new one.
	ErrAuth = errors.New("unable to authenticate with research host")
)
