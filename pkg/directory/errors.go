package directory

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

var (
	ErrNotFound  = errors.New("directory object not found")
	ErrTransient = errors.New("transient directory failure")
	ErrUnknown   = errors.New("unclassified directory failure")
)

// Error carries the classified cause of a failed directory call.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := "unknown directory error"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s (%s): %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrTransient:
		return e.Kind == KindTransient
	case ErrUnknown:
		return e.Kind == KindUnknown
	}
	return false
}

// Wrap classifies err and annotates it with the failing operation. A nil err
// stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Kind: Classify(err), Op: op, Err: err}
}

// Classify maps an error returned by the transport to an error kind.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return classifyStatus(respErr.StatusCode)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}
	return KindUnknown
}

func classifyStatus(code int) Kind {
	switch {
	case code == http.StatusNotFound:
		return KindNotFound
	case code == http.StatusRequestTimeout,
		code == http.StatusTooManyRequests,
		code >= http.StatusInternalServerError:
		return KindTransient
	default:
		return KindUnknown
	}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
