package clock

import "errors"

var (
	errZeroPeriod        = errors.New("period has no length")
	errRolloverExhausted = errors.New("no future occurrence within rollover bound")
)
