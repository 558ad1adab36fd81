package converter

import (
	"errors"
	"fmt"
)

// ErrInvalidRoute is matched by every ContractError.
var ErrInvalidRoute = errors.New("invalid route")

// ContractError reports a route that breaks the input contract: every route
// must carry a method and a path.
type ContractError struct {
	Index int
	Field string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("route %d: missing %s", e.Index, e.Field)
}

func (e *ContractError) Is(target error) bool { return target == ErrInvalidRoute }
