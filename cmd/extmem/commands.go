package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"extmem/process"
	"extmem/profile"
	"extmem/session"
)

func newPsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ps [FILTER]",
		Short: "List processes, optionally only those whose name contains FILTER",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			processes, err := opts.host.Processes()
			if err != nil {
				return errors.Wrap(err, "process snapshot")
			}

			if len(args) == 1 {
				filter := strings.ToLower(args[0])
				processes = lo.Filter(processes, func(p process.ProcessEntry, _ int) bool {
					return strings.Contains(strings.ToLower(p.Name), filter)
				})
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "PID\tNAME\tEXE")
			for _, p := range processes {
				fmt.Fprintf(w, "%d\t%s\t%s\n", p.PID, p.Name, p.Exe)
			}
			return w.Flush()
		},
	}
}

func newModulesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List the modules loaded in the target process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.process == "" {
				return errors.New("--process is required")
			}
			pid, err := process.FindProcessID(opts.host, opts.process)
			if err != nil {
				return err
			}
			modules, err := opts.host.Modules(pid)
			if err != nil {
				return errors.Wrapf(err, "modules of %d", pid)
			}
			for _, m := range modules {
				fmt.Fprintln(cmd.OutOrStdout(), m.String())
			}
			return nil
		},
	}
}

func newAttachCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "attach",
		Short: "Attach to the target and print what was resolved",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.attach(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			info := s.ModuleInfo()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Attached to process: %s\n", s.TargetName())
			fmt.Fprintf(out, "pid:          %d\n", s.ProcessID())
			fmt.Fprintf(out, "module:       %s\n", s.ModuleName())
			fmt.Fprintf(out, "base:         %s\n", s.ModuleBase().ToString())
			fmt.Fprintf(out, "size:         0x%X\n", uint(info.Size))
			fmt.Fprintf(out, "entry point:  %s\n", info.EntryPoint.ToString())
			fmt.Fprintf(out, "pointer size: %d\n", uint(s.PointerSize()))
			return nil
		},
	}
}

// resolve turns BASE and the location flags into an address inside s
func resolve(s *session.Session, base string, loc locationOptions) (process.ProcessMemoryAddress, error) {
	v, err := parseNumber(base)
	if err != nil {
		return 0, err
	}
	if loc.absolute {
		return s.ResolveAbsolute(process.ProcessMemoryAddress(v), loc.offsets...)
	}
	return s.Resolve(process.ProcessMemorySize(v), loc.offsets...)
}

func newResolveCmd(opts *rootOptions) *cobra.Command {
	var loc locationOptions

	cmd := &cobra.Command{
		Use:   "resolve BASE",
		Short: "Follow a pointer chain and print the final address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.attach(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			addr, err := resolve(s, args[0], loc)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), addr.ToString())
			return nil
		},
	}
	addLocationFlags(cmd.Flags(), &loc)
	return cmd
}

func newReadCmd(opts *rootOptions) *cobra.Command {
	var (
		loc locationOptions
		val valueOptions
	)

	cmd := &cobra.Command{
		Use:   "read BASE",
		Short: "Read a typed value at the end of a pointer chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.attach(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			addr, err := resolve(s, args[0], loc)
			if err != nil {
				return err
			}
			text, err := val.t.Read(s, addr, process.ProcessMemorySize(val.length))
			if err != nil {
				return err
			}
			printValue(cmd, addr, text)
			return nil
		},
	}
	addLocationFlags(cmd.Flags(), &loc)
	addValueFlags(cmd.Flags(), &val)
	return cmd
}

func newWriteCmd(opts *rootOptions) *cobra.Command {
	var (
		loc locationOptions
		val valueOptions
	)

	cmd := &cobra.Command{
		Use:   "write BASE VALUE",
		Short: "Write a typed value at the end of a pointer chain and read it back",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.attach(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			addr, err := resolve(s, args[0], loc)
			if err != nil {
				return err
			}
			if err := val.t.Write(s, addr, args[1]); err != nil {
				return err
			}
			text, err := val.t.Read(s, addr, process.ProcessMemorySize(val.length))
			if err != nil {
				return err
			}
			printValue(cmd, addr, text)
			return nil
		},
	}
	addLocationFlags(cmd.Flags(), &loc)
	addValueFlags(cmd.Flags(), &val)
	return cmd
}

func printValue(cmd *cobra.Command, addr process.ProcessMemoryAddress, text string) {
	if strings.Contains(text, "\n") {
		fmt.Fprintf(cmd.OutOrStdout(), "%s:\n%s", addr.ToString(), text)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", addr.ToString(), text)
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run PROFILE",
		Short: "Attach to the process named in a YAML profile and apply its values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := profile.Load(args[0])
			if err != nil {
				return err
			}
			return opts.runProfile(cmd, p)
		},
	}
}

// runProfile waits for the profile's process, then applies every value.
// --process and --module override the profile.
func (o *rootOptions) runProfile(cmd *cobra.Command, p *profile.Profile) error {
	target := p.Process
	if o.process != "" {
		target = o.process
	}
	module := p.Module
	if o.module != "" {
		module = o.module
	}

	interval, err := p.Interval()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("retry") || interval == 0 {
		interval = o.retry
	}

	s := session.NewUnattached(o.host, target, o.sessionOptions(module)...)
	if err := o.waitAttached(cmd, s, interval); err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Attached to process: %s\n", s.TargetName())

	var failed []string
	for _, r := range p.Apply(s) {
		if r.Err != nil {
			fmt.Fprintf(out, "%s: %v\n", r.Value.Name, r.Err)
			failed = append(failed, r.Value.Name)
			continue
		}
		if strings.Contains(r.Text, "\n") {
			fmt.Fprintf(out, "%s (%s):\n%s", r.Value.Name, r.Address.ToString(), r.Text)
		} else {
			fmt.Fprintf(out, "%s (%s): %s\n", r.Value.Name, r.Address.ToString(), r.Text)
		}
	}

	if len(failed) > 0 {
		return errors.Errorf("%d of %d values failed: %s", len(failed), len(p.Values), strings.Join(failed, ", "))
	}
	return nil
}
