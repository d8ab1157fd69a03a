package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"extmem/profile"
	"extmem/session"
)

const (
	demoProcess      = "ac_client.exe"
	demoPlayerOffset = 0x17E0A8
	demoHealthOffset = 0xEC
	demoHealth       = 999
)

// newDemoCmd sets the AssaultCube local player's health and reads it back
func newDemoCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Wait for ac_client.exe, set the player's health to 999 and read it back",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := demoProcess
			if opts.process != "" {
				target = opts.process
			}

			s := session.NewUnattached(opts.host, target, opts.sessionOptions(opts.module)...)
			if err := opts.waitAttached(cmd, s, opts.retry); err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Attached to process: %s\n", s.TargetName())

			addr, err := s.Resolve(demoPlayerOffset, demoHealthOffset)
			if err != nil {
				return err
			}
			if err := session.Write[int32](s, addr, demoHealth); err != nil {
				return err
			}
			health, err := profile.Int32.Read(s, addr, 0)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Player health: %s\n", health)
			return nil
		},
	}
}
