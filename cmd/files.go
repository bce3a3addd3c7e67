package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ebogdum/datarepo/core"
	"github.com/ebogdum/datarepo/metadata"
)

// withSession runs fn against a freshly opened session, closing it afterwards
func withSession(fn func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(ctx, cmd, s, args)
	}
}

func addFileCommands(root *cobra.Command) {
	var recursive bool
	var expiry time.Duration

	lsCmd := &cobra.Command{
		Use:   "ls <remote-dir>",
		Short: "List the entries of a remote directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			entries, err := s.fm.ListDirectory(ctx, optionalArg(args, 0))
			if err != nil {
				return err
			}
			return printEntries(cmd.OutOrStdout(), entries)
		}),
	}

	namesCmd := &cobra.Command{
		Use:   "names <remote-dir>",
		Short: "Print the base names of a remote directory's entries",
		Args:  cobra.MaximumNArgs(1),
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			names, err := s.fm.ListRemote(ctx, optionalArg(args, 0))
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		}),
	}

	putCmd := &cobra.Command{
		Use:   "put <local-path> <remote-path>",
		Short: "Upload a local file, or a directory tree with -r",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			if recursive {
				return s.fm.StoreDirectory(ctx, args[1], args[0])
			}
			return s.fm.StoreFile(ctx, args[1], args[0])
		}),
	}
	putCmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Upload a directory tree")

	getCmd := &cobra.Command{
		Use:   "get <remote-path> <local-path>",
		Short: "Download a remote file, or a directory tree with -r",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			if recursive {
				return s.fm.RetrieveDirectory(ctx, args[0], args[1])
			}
			return s.fm.RetrieveFile(ctx, args[0], args[1])
		}),
	}
	getCmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Download a directory tree")

	rmCmd := &cobra.Command{
		Use:   "rm <remote-dir> <filename> | rm <remote-path>",
		Short: "Delete a remote file; a missing file is not an error",
		Args:  cobra.RangeArgs(1, 2),
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			dir, name := splitDeleteArgs(args)
			return s.fm.DeleteFile(ctx, dir, name)
		}),
	}

	mkdirCmd := &cobra.Command{
		Use:   "mkdir <remote-dir>",
		Short: "Create a remote directory and its parents",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			return s.fm.CreateDirectory(ctx, args[0])
		}),
	}

	rmdirCmd := &cobra.Command{
		Use:   "rmdir <remote-dir>",
		Short: "Delete a remote directory tree",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			return s.fm.DeleteDirectory(ctx, args[0])
		}),
	}

	catCmd := &cobra.Command{
		Use:   "cat <remote-path>",
		Short: "Write a remote file to standard output",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			body, err := s.fm.GetObject(ctx, args[0])
			if err != nil {
				return err
			}
			defer body.Close()
			_, err = io.Copy(cmd.OutOrStdout(), body)
			return err
		}),
	}

	urlCmd := &cobra.Command{
		Use:   "url <remote-path>",
		Short: "Print a presigned GET URL for a remote object",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			u, err := s.fm.GetObjectURL(ctx, args[0], expiry)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		}),
	}
	urlCmd.Flags().DurationVar(&expiry, "expiry", 0, "URL lifetime (defaults to minio.url_expiry)")

	singleCmd := &cobra.Command{
		Use:   "single <local-file> <remote-dir>",
		Short: "Make a local file the only matching file in a remote directory",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			report, err := s.fm.CopySingleFile(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), report)
		}),
	}

	syncCmd := &cobra.Command{
		Use:   "sync <local-dir> <remote-dir>",
		Short: "Mirror the matching files of a local directory into a remote directory",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			report, err := s.fm.PushData(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), report)
		}),
	}

	moveCmd := &cobra.Command{
		Use:   "move <local-file> <local-dir>",
		Short: "Move a local file into a local directory",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			dst, err := s.fm.MoveToLocalDirectory(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dst)
			return nil
		}),
	}

	root.AddCommand(lsCmd, namesCmd, putCmd, getCmd, rmCmd, mkdirCmd, rmdirCmd, catCmd, urlCmd, singleCmd, syncCmd, moveCmd)
}

func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

// splitDeleteArgs accepts either a directory and a file name or a single remote path
func splitDeleteArgs(args []string) (string, string) {
	if len(args) == 2 {
		return args[0], args[1]
	}
	dir, name := path.Split(args[0])
	return dir, name
}

func printEntries(w io.Writer, entries []*metadata.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		kind := "-"
		if e.IsDirectory {
			kind = "d"
		}
		mtime := ""
		if !e.MTime.IsZero() {
			mtime = e.MTime.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", kind, e.Size, mtime, e.Name)
	}
	return tw.Flush()
}

func printReport(w io.Writer, report *core.SyncReport) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
