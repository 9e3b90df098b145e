package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/itsimonfredlingjack/svenskrag/internal/metrics"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the server's running request aggregate",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Get(serverAddr + "/stats")
		if err != nil {
			return fmt.Errorf("connecting to server: %w", err)
		}
		defer resp.Body.Close()

		var agg metrics.Aggregate
		if err := json.NewDecoder(resp.Body).Decode(&agg); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "total requests:   %d\n", agg.TotalRequests)
		fmt.Fprintf(out, "refusals:         %d\n", agg.RefusalCount)
		fmt.Fprintf(out, "errors:           %d\n", agg.ErrorCount)
		fmt.Fprintf(out, "avg total ms:     %.1f\n", agg.AvgTotalMs)
		fmt.Fprintf(out, "avg fusion gain:  %.3f\n", agg.AvgFusionGain)
		fmt.Fprintf(out, "by intent:        %v\n", agg.ByIntent)
		fmt.Fprintf(out, "by evidence:      %v\n", agg.ByEvidenceLevel)
		return nil
	},
}
