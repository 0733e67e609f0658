package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dIPC/cmd/serve"
	"github.com/ValentinKolb/dIPC/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dipc",
		Short: "inter-process communication over byte streams",
		Long: fmt.Sprintf(`dIPC (v%s)

A bidirectional command-dispatch IPC layer written in Go, exchanging
length-prefixed messages over any byte-stream pair (pipes, sockets,
stdin/stdout of a child process).`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dIPC",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dIPC v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "msgpack", util.WrapString("serializer to use (msgpack, json, gob)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
