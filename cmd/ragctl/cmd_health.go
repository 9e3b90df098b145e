package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check whether the server is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Get(serverAddr + "/health")
		if err != nil {
			return fmt.Errorf("connecting to server: %w", err)
		}
		defer resp.Body.Close()

		var status map[string]string
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "status: %s (http %d)\n", status["status"], resp.StatusCode)
		return nil
	},
}
