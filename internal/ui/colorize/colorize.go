// Package colorize applies chroma syntax highlighting to the x86/x86-64
// call-site disassembly lines qtrex's --explain output prints, grounded on
// the teacher's ARM-oriented colorize package adapted to an x86 lexer
// preference (the corroborating PUSH/LEA call sites this tool discovers
// are always x86 or x86-64, never ARM).
package colorize

import (
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

func getAssemblyLexer() chroma.Lexer {
	candidates := []string{"nasm", "gas", "GAS", "Gas"}
	for _, name := range candidates {
		if lexer := lexers.Get(name); lexer != nil {
			return lexer
		}
	}
	return nil
}

func getDisasmStyle() *chroma.Style {
	candidates := []string{"disasm-dark", "dracula", "monokai"}
	for _, name := range candidates {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

func getTerminalFormatter() chroma.Formatter {
	candidates := []string{"terminal16m", "terminal256"}
	for _, name := range candidates {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// colorsDisabled reports whether QTREX_NO_COLOR suppresses highlighting,
// matching how internal/logging reads its own env vars.
func colorsDisabled() bool {
	return os.Getenv("QTREX_NO_COLOR") != ""
}

// ColorizeAssembly applies syntax highlighting to a block of x86/x86-64
// assembly text (used for the --explain call-site listing).
func ColorizeAssembly(code string) (string, error) {
	if colorsDisabled() {
		return code, nil
	}
	lexer := getAssemblyLexer()
	if lexer == nil {
		return code, nil
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code, err
	}
	var buf strings.Builder
	if err := getTerminalFormatter().Format(&buf, getDisasmStyle(), iterator); err != nil {
		return code, err
	}
	return buf.String(), nil
}

// ColorizeInstructionLine colorizes a single "0xaddress  mnemonic operands"
// line, coloring the address separately in gray so it stays legible
// regardless of the chroma theme's own address coloring.
func ColorizeInstructionLine(line string) string {
	if colorsDisabled() {
		return line
	}

	parts := strings.SplitN(line, " ", 2)
	if len(parts) < 2 || !isHex(strings.TrimPrefix(parts[0], "0x")) {
		colorized, _ := ColorizeAssembly(line)
		return colorized
	}

	addrColored := "\033[38;2;79;79;79m" + parts[0] + "\033[0m"
	rest, _ := ColorizeAssembly(parts[1])
	return addrColored + " " + rest
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		if !((ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')) {
			return false
		}
	}
	return true
}
