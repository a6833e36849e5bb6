package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dandantas/adbfleet/internal/client"
	"github.com/spf13/cobra"
)

type globalOptions struct {
	server  string
	timeout time.Duration
}

func (o *globalOptions) client() *client.Client {
	return client.New(o.server, o.timeout)
}

// newRootCmd creates the root command
func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "fleetctl",
		Short:         "Drive the ADB fleet service from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	server := os.Getenv("FLEET_SERVER")
	if server == "" {
		server = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&opts.server, "server", server, "service base URL (env FLEET_SERVER)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "HTTP request timeout")

	rootCmd.AddCommand(
		newJobsCommand(opts),
		newDevicesCommand(opts),
		newStreamsCommand(opts),
		newVideosCommand(opts),
	)

	return rootCmd
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printf(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format, args...)
}
