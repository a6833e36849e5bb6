package main

import (
	"github.com/spf13/cobra"
)

func newStreamsCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "streams",
		Args:    cobra.NoArgs,
		Aliases: []string{"s"},
		Short:   "Inspect and end live screen streams",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:     "list",
			Args:    cobra.NoArgs,
			Aliases: []string{"ls"},
			Short:   "List devices being streamed",
			RunE: func(cmd *cobra.Command, args []string) error {
				devices, err := opts.client().Streams(cmd.Context())
				if err != nil {
					return err
				}
				if len(devices) == 0 {
					printf(cmd.OutOrStdout(), "No active streams\n")
					return nil
				}
				for _, d := range devices {
					printf(cmd.OutOrStdout(), "%s\n", d)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "stop SERIAL",
			Args:  cobra.ExactArgs(1),
			Short: "End the live stream of a device",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := opts.client().StopStream(cmd.Context(), args[0]); err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "Stream on %s stopping\n", args[0])
				return nil
			},
		},
	)

	return cmd
}
