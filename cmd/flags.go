package cmd

import (
	"github.com/spf13/cobra"

	"github.com/samsaffron/streammd/internal/llm"
	"github.com/samsaffron/streammd/internal/render"
)

// AddProviderFlag adds the --provider/-p flag with completion
func AddProviderFlag(cmd *cobra.Command, dest *string) {
	cmd.Flags().StringVarP(dest, "provider", "p", "", "Override provider, optionally with model (e.g., openai:gpt-4o-mini)")
	if err := cmd.RegisterFlagCompletionFunc("provider", ProviderFlagCompletion); err != nil {
		panic("failed to register provider completion: " + err.Error())
	}
}

// AddStyleFlag adds the --style flag with completion
func AddStyleFlag(cmd *cobra.Command, dest *string) {
	cmd.Flags().StringVar(dest, "style", "", "Terminal render style (overrides config)")
	if err := cmd.RegisterFlagCompletionFunc("style", StyleFlagCompletion); err != nil {
		panic("failed to register style completion: " + err.Error())
	}
}

// AddWidthFlag adds the --width flag
func AddWidthFlag(cmd *cobra.Command, dest *int) {
	cmd.Flags().IntVar(dest, "width", 0, "Render width in columns (0 = detect from terminal)")
}

// AddOutputFlags adds the sink selection flags shared by play and ask
func AddOutputFlags(cmd *cobra.Command, tui, html *bool) {
	cmd.Flags().BoolVar(tui, "tui", false, "Stream into a scrollable viewport")
	cmd.Flags().BoolVar(html, "html", false, "Print the final document as HTML")
}

// AddNoHistoryFlag adds the --no-history flag
func AddNoHistoryFlag(cmd *cobra.Command, dest *bool) {
	cmd.Flags().BoolVar(dest, "no-history", false, "Do not record this run in history")
}

// ProviderFlagCompletion provides shell completion for the --provider flag.
func ProviderFlagCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return llm.BuiltInProviderNames(), cobra.ShellCompDirectiveNoFileComp
}

// StyleFlagCompletion provides shell completion for the --style flag.
func StyleFlagCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return render.Styles(), cobra.ShellCompDirectiveNoFileComp
}
