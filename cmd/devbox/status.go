package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func statusCmd(load depsFunc) *cobra.Command {
	var instanceName string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Shows the status of your dev box",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := load()
			if err != nil {
				return err
			}
			name := resolveName(instanceName, d.cfg)

			state, ip, err := d.svc.Status(cmd.Context(), name)
			if err != nil {
				return renderError(name, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Instance %s is %s at IP %s\n", name, state, ip)
			return nil
		},
	}

	bindInstanceNameFlag(cmd, &instanceName, "get")
	return cmd
}
