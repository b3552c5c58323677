package source

import (
	"recibos/internal/log"
)

// DecodeOptions controls how strictly documents are decoded.
type DecodeOptions struct {
	// Strict rejects malformed dates and unknown weekdays with a
	// *DecodeError. When false a malformed bound is left open, an unknown
	// weekday drops that class, and a warning is logged for each.
	Strict bool
	Logger *log.Logger
}

// DefaultDecodeOptions is lenient.
func DefaultDecodeOptions() DecodeOptions {
	return DecodeOptions{}
}

func (o DecodeOptions) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.Default(log.ComponentSource)
}
