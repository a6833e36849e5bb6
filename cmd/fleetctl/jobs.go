package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dandantas/adbfleet/internal/client"
	"github.com/dandantas/adbfleet/internal/handler"
	"github.com/dandantas/adbfleet/internal/model"
	"github.com/spf13/cobra"
)

func newJobsCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "jobs",
		Args:    cobra.NoArgs,
		Aliases: []string{"j"},
		Short:   "Manage automation jobs",
	}

	cmd.AddCommand(
		newYouTubeCommand(opts),
		newSignInCommand(opts),
		newStatusCommand(opts),
		newStopCommand(opts),
		newListCommand(opts),
	)

	return cmd
}

func newYouTubeCommand(opts *globalOptions) *cobra.Command {
	var (
		devices   []string
		videos    []string
		channel   string
		filter    string
		durations []string
		wait      bool
	)

	cmd := &cobra.Command{
		Use:   "youtube",
		Args:  cobra.NoArgs,
		Short: "Play a list of videos on every device",
		Example: `  fleetctl jobs youtube -d emulator-5554 -d R58M123 \
    -v https://youtu.be/abc -v https://youtu.be/def --duration https://youtu.be/def=240 --wait
  fleetctl jobs youtube -d emulator-5554 --channel @veritasium --filter shorts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			custom, err := parseDurations(durations)
			if err != nil {
				return err
			}

			c := opts.client()
			accepted, err := c.StartYouTube(cmd.Context(), handler.YouTubeJobRequest{
				Devices:         devices,
				Videos:          videos,
				ChannelURL:      channel,
				ContentFilter:   filter,
				CustomDurations: custom,
			})
			if err != nil {
				return err
			}
			return reportStarted(cmd, c, accepted, wait)
		},
	}

	cmd.Flags().StringSliceVarP(&devices, "device", "d", nil, "device serial (repeatable)")
	cmd.Flags().StringSliceVarP(&videos, "video", "v", nil, "video URL (repeatable, played in order)")
	cmd.Flags().StringVar(&channel, "channel", "", "play the videos of a channel (@handle or channel URL) instead")
	cmd.Flags().StringVar(&filter, "filter", "", "channel content: all, videos, shorts or live")
	cmd.Flags().StringArrayVar(&durations, "duration", nil, "override a video duration as URL=SECONDS")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "follow the job until it finishes")
	cmd.MarkFlagRequired("device")
	cmd.MarkFlagsOneRequired("video", "channel")
	cmd.MarkFlagsMutuallyExclusive("video", "channel")

	return cmd
}

// parseDurations turns URL=SECONDS pairs into the custom_durations map. The
// split happens at the last '=' since URLs carry their own.
func parseDurations(pairs []string) (map[string]int, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	durations := make(map[string]int, len(pairs))
	for _, pair := range pairs {
		i := strings.LastIndex(pair, "=")
		if i <= 0 {
			return nil, fmt.Errorf("invalid duration %q, want URL=SECONDS", pair)
		}
		seconds, err := strconv.Atoi(pair[i+1:])
		if err != nil || seconds <= 0 {
			return nil, fmt.Errorf("invalid duration %q, seconds must be a positive integer", pair)
		}
		durations[pair[:i]] = seconds
	}
	return durations, nil
}

func newSignInCommand(opts *globalOptions) *cobra.Command {
	var (
		devices      []string
		accountsFile string
		fromStdin    bool
		wait         bool
	)

	cmd := &cobra.Command{
		Use:   "signin",
		Args:  cobra.NoArgs,
		Short: "Add Google accounts to devices, assigned round robin",
		Long: `Add Google accounts to devices.

Accounts are email:password lines. --accounts-file names a file on the
server host; --stdin sends the lines read from standard input instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := handler.SignInJobRequest{Devices: devices, AccountsFile: accountsFile}
			if fromStdin {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read accounts: %w", err)
				}
				req.Accounts = string(data)
			}

			c := opts.client()
			accepted, err := c.StartSignIn(cmd.Context(), req)
			if err != nil {
				return err
			}
			return reportStarted(cmd, c, accepted, wait)
		},
	}

	cmd.Flags().StringSliceVarP(&devices, "device", "d", nil, "device serial (repeatable)")
	cmd.Flags().StringVar(&accountsFile, "accounts-file", "", "accounts file path on the server")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "read email:password lines from standard input")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "follow the job until it finishes")
	cmd.MarkFlagRequired("device")
	cmd.MarkFlagsOneRequired("accounts-file", "stdin")

	return cmd
}

func reportStarted(cmd *cobra.Command, c *client.Client, accepted handler.JobAccepted, wait bool) error {
	out := cmd.OutOrStdout()
	printf(out, "Job %s %s\n", accepted.JobID, accepted.Status)
	if !wait {
		return nil
	}

	last := ""
	job, err := c.WaitJob(cmd.Context(), accepted.JobID, 2*time.Second, func(job model.Job) {
		line := fmt.Sprintf("[%3d%%] %s", job.Progress, job.Message)
		if line != last {
			printf(out, "%s\n", line)
			last = line
		}
	})
	if err != nil {
		return err
	}
	if job.Status != model.JobStatusCompleted {
		return fmt.Errorf("job %s ended %s: %s", job.ID, job.Status, job.Message)
	}
	return nil
}

func newStatusCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status JOB_ID",
		Args:  cobra.ExactArgs(1),
		Short: "Show a job with its counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := opts.client().Job(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), job)
		},
	}
}

func newStopCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stop JOB_ID",
		Args:  cobra.ExactArgs(1),
		Short: "Ask a job to stop",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client().StopJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if resp.Stopped {
				printf(cmd.OutOrStdout(), "Job %s stopping\n", resp.JobID)
			} else {
				printf(cmd.OutOrStdout(), "Job %s already %s\n", resp.JobID, resp.Status)
			}
			return nil
		},
	}
}

func newListCommand(opts *globalOptions) *cobra.Command {
	var active bool

	cmd := &cobra.Command{
		Use:     "list",
		Args:    cobra.NoArgs,
		Aliases: []string{"ls"},
		Short:   "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.client()
			out := cmd.OutOrStdout()

			if active {
				ids, err := c.ActiveJobs(cmd.Context())
				if err != nil {
					return err
				}
				for _, id := range ids {
					printf(out, "%s\n", id)
				}
				return nil
			}

			jobs, err := c.Jobs(cmd.Context())
			if err != nil {
				return err
			}
			return writeJobTable(out, jobs)
		},
	}

	cmd.Flags().BoolVar(&active, "active", false, "only print ids of unfinished jobs")
	return cmd
}

func writeJobTable(out io.Writer, jobs []model.Job) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB ID\tTYPE\tSTATUS\tPROGRESS\tCREATED\tMESSAGE")
	for _, job := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%s\t%s\n",
			job.ID, job.Type, job.Status, job.Progress,
			job.CreatedAt.Local().Format(time.DateTime), job.Message)
	}
	return tw.Flush()
}

