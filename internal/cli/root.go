// Package cli implements qtrex's command-line surface: a cobra root command
// that runs the discovery-and-extraction pipeline (internal/engine) against
// an input executable, an interactive Bubble Tea browser for the recovered
// tree, and a --no-tui summary path for piped/non-interactive use. Grounded
// on the teacher's internal/reverse/cmd package, generalized from an
// ARM/XXTEA reverse-engineering tool's command surface to a Qt resource
// recovery tool's.
package cli

import (
	"context"
	"fmt"
	"os"
	pathpkg "path/filepath"
	"runtime/pprof"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"qtrex/internal/engine"
	"qtrex/internal/logging"
)

func init() {
	rootCmd.Flags().StringP("output", "o", "", "Directory to extract recovered resources into (default: <file>.qtrex)")
	rootCmd.Flags().BoolP("debug", "d", false, "Debug logging")
	rootCmd.Flags().BoolP("no-tui", "n", false, "Print a summary without the interactive browser")
	rootCmd.Flags().Bool("explain", false, "With --no-tui, also print the call sites considered for the blob base")
	rootCmd.Flags().Bool("log-file", false, "Write logs to a timestamped file instead of stderr (QTREX_LOG_TO_FILE)")
	rootCmd.Flags().String("cpuprofile", "", "Write CPU profile to file")
	rootCmd.Flags().String("memprofile", "", "Write memory profile to file")

	rootCmd.AddCommand(logsCmd)
}

var rootCmd = &cobra.Command{
	Use:   "qtrex [file]",
	Short: "Recover embedded Qt resource bundles from compiled executables",
	Long: `qtrex scans a PE or ELF executable for an embedded Qt resource bundle
(the rcc name/tree/blob regions Qt's resource compiler links in) using
heuristic discovery only — no magic numbers, symbols, or debug info
required — and extracts the recovered files to disk.`,
	Example: `
  # Recover resources from a binary, browsing the result interactively
  qtrex ./myapp

  # Recover without the TUI, for scripting
  qtrex --no-tui -o ./out ./myapp
  `,
	Args: cobra.ExactArgs(1),
	RunE: runRoot,
}

func runRoot(cmd *cobra.Command, args []string) error {
	if cpuprofile, _ := cmd.Flags().GetString("cpuprofile"); cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}
	if memprofile, _ := cmd.Flags().GetString("memprofile"); memprofile != "" {
		defer func() {
			f, err := os.Create(memprofile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not create memory profile: %v\n", err)
				return
			}
			defer f.Close()
			if err := pprof.WriteHeapProfile(f); err != nil {
				fmt.Fprintf(os.Stderr, "could not write memory profile: %v\n", err)
			}
		}()
	}

	file := args[0]
	absPath, err := pathpkg.Abs(file)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", file)
		}
		return fmt.Errorf("cannot access file: %w", err)
	}

	outDir, _ := cmd.Flags().GetString("output")
	if outDir == "" {
		outDir = absPath + ".qtrex"
	}
	debug, _ := cmd.Flags().GetBool("debug")
	noTUI, _ := cmd.Flags().GetBool("no-tui")
	explain, _ := cmd.Flags().GetBool("explain")

	if !term.IsTerminal(os.Stdout.Fd()) {
		noTUI = true
		os.Setenv("QTREX_NO_COLOR", "1")
	}
	if debug {
		os.Setenv("QTREX_LOG_LEVEL", "debug")
	}
	if logFile, _ := cmd.Flags().GetBool("log-file"); logFile {
		os.Setenv("QTREX_LOG_TO_FILE", "1")
	}

	raw, err := os.ReadFile(absPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", absPath, err)
	}

	if noTUI {
		return runNoTUI(raw, absPath, outDir, explain)
	}

	program := tea.NewProgram(
		newInspectModel(raw, absPath, outDir),
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func runNoTUI(raw []byte, absPath, outDir string, explain bool) error {
	lg := logging.NewLogger()
	defer lg.Close()

	lg.Debug("starting discovery", "file", absPath, "size", len(raw))
	results, err := engine.Extract(raw, outDir)
	if err != nil {
		lg.Error("recovery failed", "file", absPath, "error", err)
		return fmt.Errorf("%s: %w", absPath, err)
	}
	lg.Info("recovery complete", "file", absPath, "trees", len(results.Trees),
		"files", results.FilesWritten, "bytes", results.BytesWritten)

	fmt.Printf("recovered %d tree(s): %d files (%d directories, %d bytes) from %s into %s\n",
		len(results.Trees), results.FilesWritten, results.DirsCreated, results.BytesWritten, absPath, outDir)
	for _, report := range results.Trees {
		fmt.Printf("  [%02d] container: %s  arch: %s\n", report.Index, report.Container, report.Arch)
		fmt.Printf("       name region: [0x%x, 0x%x)  tree base: 0x%x (%d entries)  blob base: 0x%x -> %s\n",
			report.NameRegion.Start, report.NameRegion.End, report.Tree.Base, report.Tree.Count, report.Blob.Start, report.OutDir)
	}

	if explain {
		printExplain(raw)
	}
	return nil
}

// Execute bypasses fang's markdown rendering for --no-tui/piped invocations
// (matching the teacher's Execute), since fang's output isn't meant for
// scripted or redirected use.
func Execute() {
	noTUI := false
	for _, arg := range os.Args[1:] {
		if arg == "--no-tui" || arg == "-n" {
			noTUI = true
			break
		}
	}
	if !noTUI && !term.IsTerminal(os.Stdout.Fd()) {
		noTUI = true
	}

	if noTUI {
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
