package proc

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicate      = errors.New("entry already queued or playing")
	ErrOutOfRange     = errors.New("position out of range")
	ErrNotEnough      = errors.New("not enough entries")
	ErrNotPlaying     = errors.New("nothing is playing")
	ErrSeekStreaming  = errors.New("seek is not supported while streaming")
	ErrSeekBeyond     = errors.New("seek target is past the end")
	ErrSeekSyntax     = errors.New("unrecognized seek position")
	ErrTooLong        = errors.New("entry exceeds the maximum duration")
	ErrUnsupported    = errors.New("unsupported url")
	ErrNoResults      = errors.New("no search results")
	ErrClosed         = errors.New("driver closed")
	ErrDisconnected   = errors.New("voice transport disconnected")
	ErrInvalidVolume  = errors.New("volume out of range")
	ErrArtifact       = errors.New("downloaded artifact is missing or truncated")
	ErrOverloaded     = errors.New("suggestion service overloaded")
	ErrNoSuggester    = errors.New("suggestions disabled")
	ErrUnknownPreset  = errors.New("unknown equalizer preset")
	ErrEqualizerRange = errors.New("equalizer value out of range")
)

// ErrorKind is the coarse failure taxonomy shared by the policy and the driver.
type ErrorKind int

const (
	KindTransient ErrorKind = iota
	KindFatal
	KindResource
	KindTimeout
	KindTransport
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindFatal:
		return "fatal"
	case KindResource:
		return "resource"
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ToolError carries a classified failure of the external media tool.
type ToolError struct {
	Kind    ErrorKind
	Message string
	Stderr  string
	Err     error
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ToolError) Unwrap() error { return e.Err }
