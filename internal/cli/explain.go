package cli

import (
	"fmt"

	"qtrex/internal/callscan"
	"qtrex/internal/disasm"
	"qtrex/internal/execmap"
	"qtrex/internal/ui/colorize"
)

// printExplain renders the call sites internal/callscan discovered across
// raw, for --no-tui --explain output. Only meaningful for single-file
// trees: a multi-file tree's blob base comes from delta search, not
// call-site analysis, so there's nothing to explain there.
func printExplain(raw []byte) {
	m, err := execmap.Parse(raw)
	if err != nil {
		return
	}

	sites := callscan.Scan(raw, m)
	if len(sites) == 0 {
		return
	}

	fmt.Println("\ncall sites considered for the blob base:")
	stream := toStream(sites)
	for _, inst := range stream {
		line := fmt.Sprintf("%#08x  %-4s %s", inst.VA, inst.Op, inst.Text)
		fmt.Println(colorize.ColorizeInstructionLine(line))
	}
}

func toStream(sites []callscan.Site) disasm.Stream {
	stream := make(disasm.Stream, 0, len(sites))
	for _, s := range sites {
		op := "push"
		text := fmt.Sprintf("0x%x", s.TargetOff)
		if s.Reg != "" {
			op = "lea"
			text = fmt.Sprintf("%s, [rip -> 0x%x]", s.Reg, s.TargetOff)
		}
		stream = append(stream, disasm.Inst{
			VA:   uint64(s.InstFileOff),
			Text: text,
			Op:   op,
		})
	}
	return stream
}
