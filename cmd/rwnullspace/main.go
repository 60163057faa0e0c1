package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "rwnullspace",
		Short:         "Reaction wheel null-space speed management",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newRunCommand(), newProjectorCommand())
	return root
}

func newRunCommand() *cobra.Command {
	var configDir string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the null-space module in the control loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configDir)
		},
	}
	cmd.Flags().StringVar(&configDir, "config-dir", "./config", "directory containing rwnullspace_config.yaml")
	return cmd
}

func newProjectorCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "projector",
		Short: "Compute and print the projector for a module config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printProjector(cmd.OutOrStdout(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "module configuration file (rw_null_space.yaml)")
	if err := cmd.MarkFlagRequired("config"); err != nil {
		panic(fmt.Sprintf("failed to mark config flag required: %v", err))
	}
	return cmd
}
