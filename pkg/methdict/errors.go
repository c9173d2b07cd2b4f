package methdict

import (
	"fmt"
	"strings"

	"github.com/odvcencio/tvmlink/pkg/asm"
)

// AssemblyError reports a procedure whose instructions failed to assemble.
type AssemblyError struct {
	Procedure string
	Err       error
}

func (e *AssemblyError) Error() string {
	return strings.ReplaceAll(e.Err.Error(), asm.NamePlaceholder, e.Procedure)
}

func (e *AssemblyError) Unwrap() error { return e.Err }

// CollisionError reports two procedures claiming the same method id.
type CollisionError struct {
	ID        uint32
	Existing  string
	Colliding string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("method id %d (0x%08x) of %q is already taken by %q", e.ID, e.ID, e.Colliding, e.Existing)
}
