// Package external drives the ABI encoder and the TVM emulator as
// subprocesses. Cells cross the process boundary as base64 bags of cells.
package external

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/odvcencio/tvmlink/pkg/cell"
	"github.com/odvcencio/tvmlink/pkg/program"
	"github.com/odvcencio/tvmlink/pkg/state"
)

// DefaultTimeout bounds a single subprocess run.
const DefaultTimeout = 5 * time.Minute

// Encoder implements program.ABIEncoder by running
//
//	<Bin> encode --abi <path> --function <name> --params <json>
//
// and reading the message body as a base64 bag of cells from stdout.
type Encoder struct {
	Bin     string
	Timeout time.Duration
}

// Simulator implements program.Simulator by running "<Bin> run" with a JSON
// request on stdin and reading a JSON result from stdout. Trace output the
// emulator writes to stderr is copied to Stderr when set.
type Simulator struct {
	Bin     string
	Timeout time.Duration
	Stderr  io.Writer
}

var (
	_ program.ABIEncoder = (*Encoder)(nil)
	_ program.Simulator  = (*Simulator)(nil)
)

type runRequest struct {
	State   string `json:"state"`
	Message string `json:"message"`
	Balance uint64 `json:"balance"`
	Now     uint32 `json:"now"`
	Bounce  bool   `json:"bounce"`
	Trace   bool   `json:"trace"`
}

type runResponse struct {
	ExitCode int    `json:"exit_code"`
	Success  bool   `json:"success"`
	State    string `json:"state,omitempty"`
}

func (e *Encoder) EncodeCall(ctx context.Context, abiPath, function, params string) (*cell.Cell, error) {
	out, err := run(ctx, e.Bin, e.Timeout, nil, nil,
		"encode", "--abi", abiPath, "--function", function, "--params", params)
	if err != nil {
		return nil, err
	}
	body, err := decodeCell(strings.TrimSpace(string(out)))
	if err != nil {
		return nil, fmt.Errorf("%s encode: %w", e.Bin, err)
	}
	return body, nil
}

func (s *Simulator) Run(ctx context.Context, req program.SimRequest) (*program.SimResult, error) {
	stateCell, err := req.State.ToCell()
	if err != nil {
		return nil, err
	}
	stateB64, err := encodeCell(stateCell)
	if err != nil {
		return nil, err
	}
	msgB64, err := encodeCell(req.Message)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(runRequest{
		State:   stateB64,
		Message: msgB64,
		Balance: req.Balance,
		Now:     req.Now,
		Bounce:  req.Bounce,
		Trace:   req.Trace,
	})
	if err != nil {
		return nil, err
	}

	out, err := run(ctx, s.Bin, s.Timeout, bytes.NewReader(payload), s.Stderr, "run")
	if err != nil {
		return nil, err
	}
	var resp runResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, fmt.Errorf("%s run: decode result: %w", s.Bin, err)
	}

	res := &program.SimResult{ExitCode: resp.ExitCode, Success: resp.Success}
	if resp.State != "" {
		c, err := decodeCell(resp.State)
		if err != nil {
			return nil, fmt.Errorf("%s run: %w", s.Bin, err)
		}
		if res.State, err = state.FromCell(c); err != nil {
			return nil, fmt.Errorf("%s run: %w", s.Bin, err)
		}
	}
	return res, nil
}

func run(ctx context.Context, bin string, timeout time.Duration, stdin io.Reader, trace io.Writer, args ...string) ([]byte, error) {
	if strings.TrimSpace(bin) == "" {
		return nil, fmt.Errorf("external tool path is empty")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if trace != nil {
		cmd.Stderr = io.MultiWriter(&stderr, trace)
	}
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%s %s: %s", bin, args[0], msg)
	}
	return stdout.Bytes(), nil
}

func encodeCell(c *cell.Cell) (string, error) {
	data, err := cell.SerializeBOC(c, cell.BOCOptions{})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func decodeCell(s string) (*cell.Cell, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return cell.ReadBOCRoot(data)
}
