package program

import (
	"fmt"

	"github.com/odvcencio/tvmlink/pkg/cell"
	"github.com/odvcencio/tvmlink/pkg/methdict"
)

// strategy is one code layout.
type strategy interface {
	compile(p *Program, removeCtor bool) (*cell.Cell, error)
	String() string
}

func selectStrategy(src Source) strategy {
	if len(src.Entry()) > 0 {
		return legacyStrategy{}
	}
	return currentStrategy{}
}

// entryPointIDs lists the reserved ids in the order their bodies are
// attached to the entry selector, after the internal selector.
var entryPointIDs = []uint32{methdict.IDInternal, methdict.IDExternal, methdict.IDTickTock}

// currentStrategy builds one method dictionary over all groups, takes the
// reserved ids out as fixed entry points and dispatches on the transaction
// kind.
type currentStrategy struct{}

func (currentStrategy) String() string { return "current" }

func (currentStrategy) compile(p *Program, removeCtor bool) (*cell.Cell, error) {
	b := methdict.NewBuilder(p.asm)
	for _, group := range [][]methdict.Procedure{p.src.Privates(), p.src.Internals(), p.publics(removeCtor)} {
		if err := b.Insert(group); err != nil {
			return nil, err
		}
	}

	entries := make([]*cell.Cell, 0, len(entryPointIDs))
	for _, id := range entryPointIDs {
		code, _ := b.Remove(id)
		entries = append(entries, orEmpty(code))
	}

	methods, dbg, err := b.Build()
	if err != nil {
		return nil, err
	}
	p.debug.Merge(dbg)
	p.log.Debugf("method dictionary holds %d methods", b.Len())

	refs := []*cell.Cell{orEmpty(methods)}
	if v := p.src.Version(); v != "" {
		vc, err := versionCell(v)
		if err != nil {
			return nil, err
		}
		refs = append(refs, vc)
	}
	internal, err := p.link("internal selector", internalSelectorText, 1, refs...)
	if err != nil {
		return nil, err
	}

	entry, err := p.link("entry selector", entrySelectorText, 1, append([]*cell.Cell{internal}, entries...)...)
	if err != nil {
		return nil, err
	}
	if !p.src.SaveMyCode() {
		return entry, nil
	}
	return p.link("save-my-code", saveMyCodeText, 2, entry)
}

// legacyStrategy keeps the layout of sources that ship their own main
// selector: an internal dictionary behind the internal selector and a
// public dictionary, both referenced from the main selector.
type legacyStrategy struct{}

func (legacyStrategy) String() string { return "legacy" }

func (legacyStrategy) compile(p *Program, removeCtor bool) (*cell.Cell, error) {
	internalDict, err := p.methodDict(p.src.Privates(), p.src.Internals())
	if err != nil {
		return nil, err
	}
	internal, err := p.link("internal selector", internalSelectorText, 1, orEmpty(internalDict))
	if err != nil {
		return nil, err
	}

	publicDict, err := p.methodDict(p.src.Internals(), p.publics(removeCtor))
	if err != nil {
		return nil, err
	}
	main, err := p.link("main selector", p.src.Entry(), 0, orEmpty(publicDict), internal)
	if err != nil {
		return nil, fmt.Errorf("legacy layout: %w", err)
	}
	return main, nil
}

func (p *Program) methodDict(groups ...[]methdict.Procedure) (*cell.Cell, error) {
	b := methdict.NewBuilder(p.asm)
	for _, g := range groups {
		if err := b.Insert(g); err != nil {
			return nil, err
		}
	}
	root, dbg, err := b.Build()
	if err != nil {
		return nil, err
	}
	p.debug.Merge(dbg)
	return root, nil
}
