package luby

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Stats renders the three read-only meters as a human-readable line,
// the way cmd/luby's `stats`/`debug` commands report an interpreter's
// resource consumption to a developer at the terminal.
func (i *Interp) Stats() string {
	return fmt.Sprintf("instructions=%s allocations=%s memory=%s",
		humanize.Comma(i.InstructionCount()),
		humanize.Comma(i.AllocationCount()),
		humanize.Bytes(uint64(i.MemoryUsage())),
	)
}
