package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newSweepCommand(opts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Draw every group whose scheduled time has passed",
		Long: `Run one scheduler sweep. Each due group is drawn independently; a failure
in one group does not stop the others. Suitable for a cron job.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, opts, open, func(ctx context.Context, b Backend) error {
				res, err := b.Sweep(ctx)
				if err != nil {
					return err
				}
				return output(cmd.OutOrStdout(), opts.Format, res, func(w io.Writer) {
					fmt.Fprintf(w, "checked=%d executed=%d failed=%d skipped=%d\n",
						res.GroupsChecked, res.DrawsExecuted, res.DrawsFailed, res.GroupsSkipped)
				})
			})
		},
	}
}

func newDrawCommand(opts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:           "draw <group-id>",
		Short:         "Run the draw for one group now",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, err := parseGroupID(args[0])
			if err != nil {
				return err
			}
			return withBackend(cmd, opts, open, func(ctx context.Context, b Backend) error {
				res, err := b.Draw(ctx, groupID)
				if err != nil {
					return err
				}
				out := map[string]any{
					"groupId":         res.GroupID.Hex(),
					"drawId":          res.DrawID,
					"assignmentCount": res.AssignmentCount,
					"transactional":   res.Transactional,
				}
				return output(cmd.OutOrStdout(), opts.Format, out, func(w io.Writer) {
					fmt.Fprintf(w, "drew %s: %d assignments (draw %s)\n", res.GroupID.Hex(), res.AssignmentCount, res.DrawID)
				})
			})
		},
	}
}

func newResetCommand(opts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <group-id>",
		Short: "Delete a group's assignments so it can be drawn again",
		Long: `Reset removes the group's assignments and clears its drawn flag. Givers
who were already notified are not told; use with care.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, err := parseGroupID(args[0])
			if err != nil {
				return err
			}
			return withBackend(cmd, opts, open, func(ctx context.Context, b Backend) error {
				removed, err := b.Reset(ctx, groupID)
				if err != nil {
					return err
				}
				out := map[string]any{"groupId": groupID.Hex(), "removed": removed}
				return output(cmd.OutOrStdout(), opts.Format, out, func(w io.Writer) {
					fmt.Fprintf(w, "reset %s: removed %d assignments\n", groupID.Hex(), removed)
				})
			})
		},
	}
}

func output(w io.Writer, format string, v any, text func(io.Writer)) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
