package program

import (
	"context"
	"errors"
	"fmt"

	"github.com/odvcencio/tvmlink/pkg/cell"
	"github.com/odvcencio/tvmlink/pkg/message"
	"github.com/odvcencio/tvmlink/pkg/methdict"
	"github.com/odvcencio/tvmlink/pkg/state"
)

// ABIEncoder encodes a call to function of the contract described by the
// ABI file at abiPath, with JSON-encoded params, into a message body.
type ABIEncoder interface {
	EncodeCall(ctx context.Context, abiPath, function, params string) (*cell.Cell, error)
}

// SimRequest is one message delivered to a contract in the simulator.
type SimRequest struct {
	State   *state.StateInit
	Message *cell.Cell
	Balance uint64
	Now     uint32
	Bounce  bool
	Trace   bool
}

// SimResult is the outcome of a simulated transaction.
type SimResult struct {
	ExitCode int
	Success  bool
	State    *state.StateInit
}

// Simulator executes a message against a contract state.
type Simulator interface {
	Run(ctx context.Context, req SimRequest) (*SimResult, error)
}

var (
	// ErrABIRequired is returned when constructor parameters are given
	// without an ABI file.
	ErrABIRequired = errors.New("ABI file is required to call the constructor")
	errNoEncoder   = errors.New("no ABI encoder configured")
	errNoSimulator = errors.New("no simulator configured")
)

// ConstructorError reports a constructor run that did not complete
// successfully.
type ConstructorError struct {
	ExitCode int
}

func (e *ConstructorError) Error() string {
	return fmt.Sprintf("constructor failed with exit code %d", e.ExitCode)
}

// ApplyConstructor runs the constructor once against si in the simulator.
// On success the returned state carries the data the constructor produced
// and code linked without the constructor.
func (p *Program) ApplyConstructor(ctx context.Context, si *state.StateInit, abiPath, params string, trace bool) (*state.StateInit, error) {
	if abiPath == "" {
		return nil, ErrABIRequired
	}
	if p.abi == nil {
		return nil, errNoEncoder
	}
	if p.sim == nil {
		return nil, errNoSimulator
	}

	body, err := p.abi.EncodeCall(ctx, abiPath, methdict.ConstructorName, params)
	if err != nil {
		return nil, fmt.Errorf("encode constructor call: %w", err)
	}
	msg, err := message.ExternalIn(message.Destination{}, body)
	if err != nil {
		return nil, err
	}

	res, err := p.sim.Run(ctx, SimRequest{
		State:   si,
		Message: msg,
		Now:     uint32(p.now().Unix()),
		Trace:   trace,
	})
	if err != nil {
		return nil, fmt.Errorf("run constructor: %w", err)
	}
	p.log.Debugf("constructor finished with exit code %d (success %t)", res.ExitCode, res.Success)
	if !res.Success {
		return nil, &ConstructorError{ExitCode: res.ExitCode}
	}
	if res.State == nil {
		return nil, fmt.Errorf("run constructor: simulator returned no state")
	}

	code, err := p.CompileCode(true)
	if err != nil {
		return nil, err
	}
	out := *si
	out.Code = code
	out.Data = res.State.Data
	return &out, nil
}
