package script

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Error is a compile error reported at a source line.
type Error struct {
	File    string
	Line    int
	Message string
}

func (e *Error) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
}

type ErrorList []*Error

func (l ErrorList) Error() string {
	var sb strings.Builder
	for i, e := range l {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(e.Error())
	}
	return sb.String()
}

// Err returns the list as an error, or nil when it is empty.
func (l ErrorList) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

var (
	errStackOverflow = errors.New("stack overflow")
	errMissingArgs   = errors.New("missing arguments")
	errTooManyArgs   = errors.New("too many arguments")
)

func errUnexpected(cmd string) error {
	return errors.Errorf("%s without matching block", cmd)
}
