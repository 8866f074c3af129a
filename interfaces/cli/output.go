package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/meetscribe/scribe-go/application"
	"github.com/meetscribe/scribe-go/domain/call"
)

// printResponse renders a coordinator response as indented JSON. Failed
// responses are printed too, then reported as an error so the process
// exits non-zero.
func (a *App) printResponse(resp call.Response) error {
	out, err := json.MarshalIndent(responseView(resp), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, string(out))

	if !resp.Success && resp.Error != nil {
		return fmt.Errorf("%s: %s", resp.Error.Code, resp.Error.Message)
	}
	return nil
}

// view types give responses stable JSON field names without putting
// serialization tags on the domain model.

type responseJSON struct {
	RequestID string       `json:"request_id"`
	Success   bool         `json:"success"`
	Data      any          `json:"data,omitempty"`
	Error     *errorJSON   `json:"error,omitempty"`
	Metadata  metadataJSON `json:"metadata"`
}

type errorJSON struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

type metadataJSON struct {
	Timestamp time.Time `json:"timestamp"`
	Duration  string    `json:"duration,omitempty"`
	Region    string    `json:"region,omitempty"`
	FromCache bool      `json:"from_cache"`
}

func responseView(resp call.Response) responseJSON {
	view := responseJSON{
		RequestID: resp.RequestID,
		Success:   resp.Success,
		Data:      resp.Data,
		Metadata: metadataJSON{
			Timestamp: resp.Metadata.Timestamp,
			Region:    resp.Metadata.Region,
			FromCache: resp.Metadata.FromCache,
		},
	}
	if resp.Metadata.Duration > 0 {
		view.Metadata.Duration = resp.Metadata.Duration.String()
	}
	if resp.Error != nil {
		view.Error = &errorJSON{
			Code:      resp.Error.Code,
			Message:   resp.Error.Message,
			Retryable: resp.Error.Retryable,
		}
	}
	return view
}

// shutdown drains the coordinator with a bounded wait.
func (a *App) shutdown(coord *application.Coordinator, drain time.Duration) {
	if drain <= 0 {
		drain = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), drain+time.Second)
	defer cancel()
	_ = coord.Shutdown(ctx)
}
