package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samsaffron/streammd/internal/config"
	"github.com/samsaffron/streammd/internal/render"
)

var stylesCmd = &cobra.Command{
	Use:   "styles",
	Short: "List terminal render styles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		configured, err := render.ResolveStyle(cfg.Play.Style)
		if err != nil {
			configured = render.StyleAuto
		}
		for _, name := range render.Styles() {
			marker := "  "
			if name == configured {
				marker = "* "
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", marker, name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stylesCmd)
}
