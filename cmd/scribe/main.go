// Command scribe coordinates and caches calls to a cloud
// speech-transcription API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/meetscribe/scribe-go/interfaces/cli"
)

func main() {
	app := cli.New()
	if err := app.Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
