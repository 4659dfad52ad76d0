package vm

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/core/types"
)

// EVMLogger receives execution callbacks. CaptureState fires before each
// instruction with the gas remaining prior to deduction; CaptureEnter and
// CaptureExit bracket sub-frames.
type EVMLogger interface {
	CaptureStart(from, to types.Address, create bool, input []byte, gas uint64, value *uint256.Int)
	CaptureState(pc uint64, op OpCode, gas, cost uint64, stack *Stack, mem *Memory, depth int, err error)
	CaptureEnter(op OpCode, from, to types.Address, input []byte, gas uint64, value *uint256.Int)
	CaptureExit(output []byte, gasUsed uint64, err error)
	CaptureEnd(output []byte, gasUsed uint64, err error)
}

// TraceStep records one executed instruction.
type TraceStep struct {
	PC      uint64   `json:"pc"`
	OpCode  string   `json:"op"`
	OpByte  byte     `json:"opByte"`
	Gas     uint64   `json:"gas"`
	GasCost uint64   `json:"gasCost"`
	Depth   int      `json:"depth"`
	Stack   []string `json:"stack,omitempty"`
	Memory  string   `json:"memory,omitempty"`
	MemSize int      `json:"memSize"`
	Error   string   `json:"error,omitempty"`
}

// TraceCallEvent records a frame boundary.
type TraceCallEvent struct {
	Kind    string `json:"kind"` // "enter" or "exit"
	OpCode  string `json:"op,omitempty"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	Input   string `json:"input,omitempty"`
	Gas     uint64 `json:"gas,omitempty"`
	Value   string `json:"value,omitempty"`
	Output  string `json:"output,omitempty"`
	GasUsed uint64 `json:"gasUsed,omitempty"`
	Error   string `json:"error,omitempty"`
}

// StructLoggerConfig controls how much each step records.
type StructLoggerConfig struct {
	DisableStack bool
	EnableMemory bool
	MemoryLimit  int // max memory bytes per step, 0 means unlimited
	StreamTo     io.Writer
}

// StructLogger collects a structured step-by-step trace. With StreamTo set
// it additionally writes each event as a JSON line as it happens.
type StructLogger struct {
	cfg    StructLoggerConfig
	steps  []TraceStep
	events []TraceCallEvent
	output []byte
	err    error
}

func NewStructLogger(cfg *StructLoggerConfig) *StructLogger {
	l := &StructLogger{}
	if cfg != nil {
		l.cfg = *cfg
	}
	return l
}

func (l *StructLogger) CaptureStart(from, to types.Address, create bool, input []byte, gas uint64, value *uint256.Int) {
	ev := TraceCallEvent{
		Kind:  "enter",
		From:  from.Hex(),
		To:    to.Hex(),
		Input: hex.EncodeToString(input),
		Gas:   gas,
	}
	if create {
		ev.OpCode = CREATE.String()
	}
	if value != nil && !value.IsZero() {
		ev.Value = value.Hex()
	}
	l.record(ev)
}

func (l *StructLogger) CaptureState(pc uint64, op OpCode, gas, cost uint64, stack *Stack, mem *Memory, depth int, err error) {
	step := TraceStep{
		PC:      pc,
		OpCode:  op.String(),
		OpByte:  byte(op),
		Gas:     gas,
		GasCost: cost,
		Depth:   depth,
		MemSize: mem.Len(),
	}
	if !l.cfg.DisableStack {
		data := stack.Data()
		step.Stack = make([]string, len(data))
		for i := range data {
			step.Stack[i] = data[i].Hex()
		}
	}
	if l.cfg.EnableMemory {
		data := mem.Data()
		if l.cfg.MemoryLimit > 0 && len(data) > l.cfg.MemoryLimit {
			data = data[:l.cfg.MemoryLimit]
		}
		step.Memory = hex.EncodeToString(data)
	}
	if err != nil {
		step.Error = err.Error()
	}
	l.steps = append(l.steps, step)
	l.writeJSON(step)
}

func (l *StructLogger) CaptureEnter(op OpCode, from, to types.Address, input []byte, gas uint64, value *uint256.Int) {
	ev := TraceCallEvent{
		Kind:   "enter",
		OpCode: op.String(),
		From:   from.Hex(),
		To:     to.Hex(),
		Input:  hex.EncodeToString(input),
		Gas:    gas,
	}
	if value != nil && !value.IsZero() {
		ev.Value = value.Hex()
	}
	l.record(ev)
}

func (l *StructLogger) CaptureExit(output []byte, gasUsed uint64, err error) {
	ev := TraceCallEvent{
		Kind:    "exit",
		Output:  hex.EncodeToString(output),
		GasUsed: gasUsed,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	l.record(ev)
}

func (l *StructLogger) CaptureEnd(output []byte, gasUsed uint64, err error) {
	l.output = output
	l.err = err
	ev := TraceCallEvent{
		Kind:    "exit",
		Output:  hex.EncodeToString(output),
		GasUsed: gasUsed,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	l.record(ev)
}

func (l *StructLogger) record(ev TraceCallEvent) {
	l.events = append(l.events, ev)
	l.writeJSON(ev)
}

func (l *StructLogger) writeJSON(v any) {
	if l.cfg.StreamTo == nil {
		return
	}
	enc, err := json.Marshal(v)
	if err != nil {
		return
	}
	l.cfg.StreamTo.Write(append(enc, '\n'))
}

// Steps returns the recorded instruction trace.
func (l *StructLogger) Steps() []TraceStep { return l.steps }

// Events returns the recorded frame boundary events.
func (l *StructLogger) Events() []TraceCallEvent { return l.events }

// Output returns the final return data of the traced execution.
func (l *StructLogger) Output() []byte { return l.output }

// Error returns the terminal error of the traced execution, if any.
func (l *StructLogger) Error() error { return l.err }

// GasByOpcode aggregates gas spent per opcode across the trace.
func (l *StructLogger) GasByOpcode() map[string]uint64 {
	agg := make(map[string]uint64)
	for _, step := range l.steps {
		agg[step.OpCode] += step.GasCost
	}
	return agg
}

// FormatTrace renders the step trace as a human-readable table.
func (l *StructLogger) FormatTrace() string {
	var sb strings.Builder
	for _, step := range l.steps {
		fmt.Fprintf(&sb, "%-6d %-14s gas=%-10d cost=%-8d depth=%d", step.PC, step.OpCode, step.Gas, step.GasCost, step.Depth)
		if len(step.Stack) > 0 {
			top := step.Stack[len(step.Stack)-1]
			fmt.Fprintf(&sb, " top=%s", top)
		}
		if step.Error != "" {
			fmt.Fprintf(&sb, " err=%q", step.Error)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
