package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CerberusV1/proc-monitor/internal/config"
)

func newConfigCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and convert proc-monitor configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(
		newConfigPathCmd(f),
		newConfigShowCmd(f),
		newConfigCheckCmd(f),
		newConfigConvertCmd(),
	)
	return cmd
}

func newConfigPathCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			path := f.configPath
			if path == "" {
				path = config.DefaultPath()
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
		},
	}
}

func newConfigShowCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as Lua",
		Long:  "Print the configuration after the file, environment variables and flags are applied.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			out, err := config.NewMigrator(config.WithComments(false), config.WithDefaults(true)).MigrateToLua(cfg)
			if err != nil {
				return &exitError{code: 1, message: err.Error()}
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func newConfigCheckCmd(f *flags) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := config.Load(config.LoadOptions{Path: f.configPath})
			if err != nil {
				return &exitError{code: 1, message: fmt.Sprintf("load config: %v", err)}
			}
			adjuster(cmd, f)(cfg)

			result := config.NewValidator().WithStrictMode(strict).Validate(cfg)
			out := cmd.OutOrStdout()
			for _, w := range result.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w.Error())
			}
			if err := result.Error(); err != nil {
				return &exitError{code: 2, message: err.Error()}
			}
			fmt.Fprintln(out, "configuration is valid")
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as errors")
	return cmd
}

func newConfigConvertCmd() *cobra.Command {
	var comments bool

	cmd := &cobra.Command{
		Use:   "convert FILE",
		Short: "Convert a legacy key/value configuration to Lua",
		Long:  "Convert a legacy key/value configuration to Lua and print it. Redirect the output to save it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := config.MigrateLegacyFile(args[0], config.WithComments(comments))
			if err != nil {
				return &exitError{code: 1, message: fmt.Sprintf("convert: %v", err)}
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().BoolVar(&comments, "comments", true, "include explanatory comments")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "proc-monitor version %s\n", Version)
		},
	}
}
