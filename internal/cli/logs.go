package cli

import (
	"fmt"

	"github.com/nxadm/tail"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:    "logs <file>",
	Short:  "Tail a qtrex debug log file (QTREX_LOG_TO_FILE output)",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")
		t, err := tail.TailFile(args[0], tail.Config{
			Follow:    follow,
			ReOpen:    follow,
			MustExist: true,
		})
		if err != nil {
			return fmt.Errorf("tailing %s: %w", args[0], err)
		}
		for line := range t.Lines {
			if line.Err != nil {
				return line.Err
			}
			fmt.Println(line.Text)
		}
		return t.Err()
	},
}

func init() {
	logsCmd.Flags().BoolP("follow", "f", false, "Keep reading as the file grows")
}
