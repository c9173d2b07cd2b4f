// Package program links separately assembled procedures into a deployable
// contract: method dictionaries, the synthesized dispatcher, the initial
// data layout and, optionally, an off-chain constructor run.
package program

import (
	"crypto/ed25519"
	"strings"
	"time"

	"github.com/odvcencio/tvmlink/pkg/asm"
	"github.com/odvcencio/tvmlink/pkg/cell"
	"github.com/odvcencio/tvmlink/pkg/debugmap"
	"github.com/odvcencio/tvmlink/pkg/methdict"
	"go.uber.org/zap"
)

// Source is the parsed input of a build: procedure groups keyed by method
// id plus contract-wide declarations.
type Source interface {
	Publics() []methdict.Procedure
	Privates() []methdict.Procedure
	Internals() []methdict.Procedure
	// Entry is the hand-written main selector of old-style sources. When it
	// is non-empty the legacy layout is used.
	Entry() []asm.Line
	// PersistentData returns the data dictionary key of the public key and
	// an optional 64-bit keyed dictionary root of initial values.
	PersistentData() (base int64, root *cell.Cell)
	Version() string
	SaveMyCode() bool
}

// Assembler turns instruction lines into a code cell with debug entries.
type Assembler interface {
	Assemble(lines []asm.Line) (*asm.Result, error)
}

// Language is the declared source language of a build.
type Language int

const (
	LanguageUnspecified Language = iota
	LanguageC
)

// ParseLanguage maps a language marker to a Language. Unknown markers carry
// no special behavior and map to LanguageUnspecified.
func ParseLanguage(s string) Language {
	if strings.EqualFold(strings.TrimSpace(s), "c") {
		return LanguageC
	}
	return LanguageUnspecified
}

func (l Language) String() string {
	if l == LanguageC {
		return "C"
	}
	return "unspecified"
}

// Program is one build. It is not safe for concurrent use.
type Program struct {
	src      Source
	strategy strategy
	keypair  ed25519.PrivateKey
	lang     Language
	asm      Assembler
	abi      ABIEncoder
	sim      Simulator
	now      func() time.Time
	log      *zap.SugaredLogger
	debug    *debugmap.Map
}

// Option configures a Program.
type Option func(*Program)

// WithKeypair embeds the public half of key in the initial data.
func WithKeypair(key ed25519.PrivateKey) Option {
	return func(p *Program) { p.keypair = key }
}

// WithLanguage sets the declared source language.
func WithLanguage(l Language) Option {
	return func(p *Program) { p.lang = l }
}

// WithAssembler replaces the built-in assembler.
func WithAssembler(a Assembler) Option {
	return func(p *Program) { p.asm = a }
}

// WithABIEncoder sets the encoder used for constructor calls.
func WithABIEncoder(e ABIEncoder) Option {
	return func(p *Program) { p.abi = e }
}

// WithSimulator sets the VM used to run the constructor.
func WithSimulator(s Simulator) Option {
	return func(p *Program) { p.sim = s }
}

// WithClock sets the time source for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Program) { p.now = now }
}

// WithLogger sets the build logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Program) { p.log = l.Sugar() }
}

// New returns a Program for src. The build layout is fixed here: sources
// with entry lines use the legacy layout.
func New(src Source, opts ...Option) *Program {
	p := &Program{
		src:   src,
		asm:   asm.Assembler{},
		now:   time.Now,
		log:   zap.NewNop().Sugar(),
		debug: debugmap.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.strategy = selectStrategy(src)
	return p
}

// DebugMap returns the debug entries accumulated by the build so far.
func (p *Program) DebugMap() *debugmap.Map { return p.debug }

// Legacy reports whether the program uses the legacy layout.
func (p *Program) Legacy() bool {
	_, ok := p.strategy.(legacyStrategy)
	return ok
}

// CompileCode links the contract code. With removeCtor the public
// procedure named "constructor" is left out.
func (p *Program) CompileCode(removeCtor bool) (*cell.Cell, error) {
	code, err := p.strategy.compile(p, removeCtor)
	if err != nil {
		return nil, err
	}
	p.log.Debugf("linked code %s (%s layout, constructor removed: %t)", code.Hash(), p.strategy, removeCtor)
	return code, nil
}

func (p *Program) publics(removeCtor bool) []methdict.Procedure {
	if removeCtor {
		return methdict.ExcludeConstructor(p.src.Publics())
	}
	return p.src.Publics()
}
