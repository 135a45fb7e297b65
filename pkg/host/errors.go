package host

import "errors"

// ErrHubClosed is returned by OpenPanel after the hub is closed.
var ErrHubClosed = errors.New("event hub closed")
