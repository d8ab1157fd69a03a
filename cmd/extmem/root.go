package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"extmem/process"
	"extmem/session"
)

type rootOptions struct {
	host    process.Host
	process string
	module  string
	wait    bool
	retry   time.Duration
	timeout time.Duration
}

func newRootCmd(host process.Host) *cobra.Command {
	opts := &rootOptions{host: host}

	rootCmd := &cobra.Command{
		Use:          "extmem",
		Short:        "Read, write and follow pointers in another process's memory",
		SilenceUsage: true,
	}

	fs := rootCmd.PersistentFlags()
	fs.StringVarP(&opts.process, "process", "p", "", "image name of the target process")
	fs.StringVarP(&opts.module, "module", "m", "", "module anchoring relative addresses (default: the process image)")
	fs.BoolVarP(&opts.wait, "wait", "w", false, "keep retrying until the process can be attached")
	fs.DurationVar(&opts.retry, "retry", session.DefaultRetryInterval, "delay between attach attempts")
	fs.DurationVar(&opts.timeout, "timeout", 0, "give up waiting after this long (0 waits forever)")

	rootCmd.AddCommand(
		newPsCmd(opts),
		newModulesCmd(opts),
		newAttachCmd(opts),
		newResolveCmd(opts),
		newReadCmd(opts),
		newWriteCmd(opts),
		newRunCmd(opts),
		newDemoCmd(opts),
	)
	return rootCmd
}

func (o *rootOptions) sessionOptions(module string) []session.Option {
	if module == "" {
		return nil
	}
	return []session.Option{session.WithModule(module)}
}

// attach opens a session to the --process target, waiting for it when --wait is set
func (o *rootOptions) attach(cmd *cobra.Command) (*session.Session, error) {
	if o.process == "" {
		return nil, errors.New("--process is required")
	}

	s := session.NewUnattached(o.host, o.process, o.sessionOptions(o.module)...)
	if !o.wait {
		if err := s.Attach(); err != nil {
			return nil, err
		}
		return s, nil
	}

	if err := o.waitAttached(cmd, s, o.retry); err != nil {
		return nil, err
	}
	return s, nil
}

func (o *rootOptions) waitAttached(cmd *cobra.Command, s *session.Session, interval time.Duration) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	err := s.WaitAttached(ctx, interval, func(_ int, err error) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Failed to attach to process error: %s trying again...\n", err)
	})
	if err != nil {
		return errors.Wrapf(err, "waiting for %s", s.TargetName())
	}
	return nil
}
