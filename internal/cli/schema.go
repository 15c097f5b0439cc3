package cli

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

// Config documents qtrex's effective configuration surface (flags and
// environment variables) as a JSON schema, for tooling that wraps qtrex.
type Config struct {
	Debug     bool   `json:"debug" jsonschema:"title=Debug,description=Enable debug logging (QTREX_LOG_LEVEL=debug)"`
	OutputDir string `json:"outputDir" jsonschema:"title=Output Directory,description=Directory recovered resources are extracted into"`
	NoTUI     bool   `json:"noTui" jsonschema:"title=No TUI,description=Print a summary instead of launching the interactive browser"`
	Explain   bool   `json:"explain" jsonschema:"title=Explain,description=Print the call sites used to recover a single-file tree's blob region"`
	LogToFile bool   `json:"logToFile" jsonschema:"title=Log To File,description=Write logs to a timestamped file (QTREX_LOG_TO_FILE=1)"`
}

var schemaCmd = &cobra.Command{
	Use:    "schema",
	Short:  "Generate JSON schema for qtrex's configuration",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		reflector := new(jsonschema.Reflector)
		bts, err := json.MarshalIndent(reflector.Reflect(&Config{}), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal schema: %w", err)
		}
		fmt.Println(string(bts))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
