package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/samsaffron/streammd/internal/config"
	"github.com/samsaffron/streammd/internal/term"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and bootstrap configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print where the config file is read from",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configShowCmd, configPathCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Credentials never leave the process, only whether they resolved.
	shown := *cfg
	shown.Anthropic.APIKey = redactKey(shown.Anthropic.APIKey)
	shown.OpenAI.APIKey = redactKey(shown.OpenAI.APIKey)
	shown.Gemini.APIKey = redactKey(shown.Gemini.APIKey)
	shown.Telegram.Token = redactKey(shown.Telegram.Token)

	data, err := yaml.Marshal(&shown)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if config.Exists() && term.IsTerminal(os.Stdin) {
		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("A config file already exists. Overwrite it?").
					Affirmative("Yes").
					Negative("No").
					Value(&overwrite),
			),
		).WithShowHelp(false)
		if err := form.Run(); err != nil {
			return err
		}
		if !overwrite {
			return nil
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return err
	}
	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}

func redactKey(s string) string {
	if s == "" {
		return ""
	}
	return "(set)"
}
