package sink

import "errors"

var (
	ErrPingFailed        = errors.New("sink: ping failed")
	ErrEnsureDestination = errors.New("sink: failed to ensure destination")
	ErrStoreFailed       = errors.New("sink: bulk store failed")
)
