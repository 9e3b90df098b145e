// Command ragctl is the operator CLI for a running svenskrag server: it
// drives one-off queries against the /query SSE endpoint and checks
// server health and running stats.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var serverAddr string

var rootCmd = &cobra.Command{
	Use:   "ragctl",
	Short: "Operator CLI for the svenskrag question-answering server",
}

func main() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "http://localhost:8080", "svenskrag server address")
	rootCmd.AddCommand(queryCmd, healthCmd, statsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
