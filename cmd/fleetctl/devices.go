package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newDevicesCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "devices",
		Args:    cobra.NoArgs,
		Aliases: []string{"d"},
		Short:   "Work with attached devices",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:     "list",
			Args:    cobra.NoArgs,
			Aliases: []string{"ls"},
			Short:   "List attached devices",
			RunE: func(cmd *cobra.Command, args []string) error {
				devices, err := opts.client().Devices(cmd.Context())
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "SERIAL\tSTATE\tNAME")
				for _, d := range devices {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", d.ID, d.State, d.Name)
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "rename SERIAL NAME",
			Args:  cobra.MinimumNArgs(2),
			Short: "Give a device a custom name",
			RunE: func(cmd *cobra.Command, args []string) error {
				name := strings.Join(args[1:], " ")
				if err := opts.client().RenameDevice(cmd.Context(), args[0], name); err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "%s renamed to %q\n", args[0], name)
				return nil
			},
		},
		newExecCommand(opts),
	)

	return cmd
}

func newExecCommand(opts *globalOptions) *cobra.Command {
	var devices []string

	cmd := &cobra.Command{
		Use:     "exec -d SERIAL [-d SERIAL...] -- ADB_COMMAND...",
		Args:    cobra.MinimumNArgs(1),
		Short:   "Run one adb command on several devices at once",
		Example: `  fleetctl devices exec -d emulator-5554 -d R58M123 -- shell getprop ro.product.model`,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client().RunCommand(cmd.Context(), devices, strings.Join(args, " "))
			if err != nil {
				return err
			}

			serials := make([]string, 0, len(resp.Results))
			for serial := range resp.Results {
				serials = append(serials, serial)
			}
			sort.Strings(serials)

			out := cmd.OutOrStdout()
			for _, serial := range serials {
				result := resp.Results[serial]
				if result.Success {
					printf(out, "== %s (ok, %dms)\n%s\n", serial, result.DurationMs, strings.TrimRight(result.Output, "\n"))
				} else {
					printf(out, "== %s (exit %d)\n%s\n", serial, result.ExitCode, result.Error)
				}
			}
			if resp.Failed > 0 {
				return fmt.Errorf("%d of %d devices failed", resp.Failed, resp.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&devices, "device", "d", nil, "device serial (repeatable)")
	cmd.MarkFlagRequired("device")
	return cmd
}
