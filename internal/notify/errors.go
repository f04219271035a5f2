package notify

import "errors"

// ErrChannelDisabled is reported for a channel that was not configured.
var ErrChannelDisabled = errors.New("notify: channel disabled")
