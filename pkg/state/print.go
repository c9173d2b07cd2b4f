package state

import (
	"encoding/base64"
	"fmt"

	"github.com/odvcencio/tvmlink/pkg/cell"
)

// Print renders si with each subtree as a base64 bag of cells.
func Print(si *StateInit) string {
	split := "None"
	if si.SplitDepth != nil {
		split = fmt.Sprintf("%d", *si.SplitDepth)
	}
	special := "None"
	if si.Special != nil {
		special = fmt.Sprintf("TickTock { tick: %t, tock: %t }", si.Special.Tick, si.Special.Tock)
	}
	return fmt.Sprintf("StateInit\n split_depth: %s\n special: %s\n data: %s\n code: %s\n lib:  %s\n",
		split, special, treeBase64(si.Data), treeBase64(si.Code), treeBase64(si.Library))
}

func treeBase64(c *cell.Cell) string {
	if c == nil {
		return "None"
	}
	data, err := cell.SerializeBOC(c, cell.BOCOptions{})
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return base64.StdEncoding.EncodeToString(data)
}
