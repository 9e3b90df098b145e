package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Tangerg/lynx/sse"
	"github.com/spf13/cobra"

	"github.com/itsimonfredlingjack/svenskrag/internal/ragtypes"
)

var (
	queryMode string
	queryK    int
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Stream an answer to a legal question from the server",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryMode, "mode", "auto", "auto, chat, assist, or evidence")
	queryCmd.Flags().IntVar(&queryK, "k", 0, "override retrieval k (0 uses server default)")
}

func runQuery(cmd *cobra.Command, args []string) error {
	req := ragtypes.QueryEnvelope{
		Question: args[0],
		Mode:     ragtypes.Mode(queryMode),
		K:        queryK,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequest(http.MethodPost, serverAddr+"/query", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("connecting to server: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	reader, err := sse.NewReader(resp)
	if err != nil {
		return fmt.Errorf("opening sse stream: %w", err)
	}
	defer reader.Close()

	for reader.Next() {
		msg := reader.Current()
		var event ragtypes.StreamEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "malformed event: %v\n", err)
			continue
		}
		printEvent(cmd, event)
	}
	return reader.Error()
}

func printEvent(cmd *cobra.Command, event ragtypes.StreamEvent) {
	out := cmd.OutOrStdout()
	switch event.Type {
	case ragtypes.EventPhase:
		fmt.Fprintf(cmd.ErrOrStderr(), "[%s]\n", event.Phase.Phase)
	case ragtypes.EventDecontextualized:
		fmt.Fprintf(cmd.ErrOrStderr(), "rewritten: %q -> %q\n", event.Decontextualized.Original, event.Decontextualized.Rewritten)
	case ragtypes.EventMetadata:
		fmt.Fprintf(cmd.ErrOrStderr(), "mode=%s evidence=%s sources=%d refusal=%v\n",
			event.Metadata.Mode, event.Metadata.EvidenceLevel, len(event.Metadata.Sources), event.Metadata.Refusal)
	case ragtypes.EventToken:
		fmt.Fprint(out, event.Token.Delta)
	case ragtypes.EventCorrections:
		fmt.Fprintf(cmd.ErrOrStderr(), "\n%d term correction(s) applied\n", len(event.Corrections.Corrections))
	case ragtypes.EventDone:
		fmt.Fprintln(out)
	case ragtypes.EventError:
		fmt.Fprintf(cmd.ErrOrStderr(), "\nerror [%s]: %s\n", event.Error.Kind, event.Error.Message)
	}
}
