package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func startCmd(load depsFunc) *cobra.Command {
	var instanceName string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Starts your dev box",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := load()
			if err != nil {
				return err
			}
			name := resolveName(instanceName, d.cfg)

			// The caller's public IP is what gets SSH ingress.
			ip, err := d.ip.Lookup(cmd.Context())
			if err != nil {
				return err
			}

			id, publicIP, err := d.svc.Start(cmd.Context(), name, ip)
			if err != nil {
				return renderError(name, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Started instance %s (%s) at %s\n", name, id, publicIP)
			return nil
		},
	}

	bindInstanceNameFlag(cmd, &instanceName, "start")
	return cmd
}
