package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"wasdeploy/internal/config"
)

// supportedKinds lists the container kinds this build can drive.
var supportedKinds = []config.Kind{config.KindLibertyManaged, config.KindLibertyRemote, config.KindWASRemote}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of wasdeploy",
		Long:  `Prints the wasdeploy version, the Go runtime it was built with and the server kinds it supports.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "wasdeploy version %s\n", rootCmd.Version)
			fmt.Fprintf(out, "go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			fmt.Fprint(out, "kinds:")
			for _, k := range supportedKinds {
				fmt.Fprintf(out, " %s", k)
			}
			fmt.Fprintln(out)
		},
	}
}
