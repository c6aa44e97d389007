package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func stopCmd(load depsFunc) *cobra.Command {
	var instanceName string

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stops your dev box",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := load()
			if err != nil {
				return err
			}
			name := resolveName(instanceName, d.cfg)

			id, err := d.svc.Stop(cmd.Context(), name)
			if err != nil {
				return renderError(name, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Stopped instance %s (%s)\n", name, id)
			return nil
		},
	}

	bindInstanceNameFlag(cmd, &instanceName, "stop")
	return cmd
}
