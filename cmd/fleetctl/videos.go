package main

import (
	"github.com/dandantas/adbfleet/internal/handler"
	"github.com/spf13/cobra"
)

func newVideosCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "videos",
		Args:    cobra.NoArgs,
		Aliases: []string{"v"},
		Short:   "Look up YouTube videos",
	}

	var filter string
	channel := &cobra.Command{
		Use:     "channel CHANNEL",
		Args:    cobra.ExactArgs(1),
		Short:   "List the videos a channel publishes",
		Example: `  fleetctl videos channel @veritasium --filter shorts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			videos, err := opts.client().ChannelVideos(cmd.Context(), handler.ChannelRequest{
				ChannelURL:    args[0],
				ContentFilter: filter,
			})
			if err != nil {
				return err
			}
			for _, v := range videos {
				printf(cmd.OutOrStdout(), "%s\t%s\n", v.Category, v.URL)
			}
			return nil
		},
	}
	channel.Flags().StringVar(&filter, "filter", "", "channel content: all, videos, shorts or live")

	cmd.AddCommand(channel)
	return cmd
}
