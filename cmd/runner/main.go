// Command runner performs one batch submission pass and exits. It is meant
// to be started by an external cron or beat.
package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/redditscheduler/internal/server"
	"github.com/dmitrijs2005/redditscheduler/internal/server/config"
	"github.com/dmitrijs2005/redditscheduler/internal/server/services"
)

type output struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Processed int    `json:"processed"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Errors    any    `json:"errors,omitempty"`
	Error     string `json:"error,omitempty"`
}

type batchApp interface {
	RunScheduler(ctx context.Context) (*services.RunResult, error)
	Close() error
}

// run executes one pass, writes the JSON result to w and returns the exit code.
func run(ctx context.Context, app batchApp, w io.Writer, l *log.Logger) int {
	res, err := app.RunScheduler(ctx)
	if cerr := app.Close(); cerr != nil {
		l.Printf("db close failed: %v", cerr)
	}

	enc := json.NewEncoder(w)
	if err != nil {
		_ = enc.Encode(output{Error: "Scheduler failed: " + err.Error()})
		return 1
	}

	_ = enc.Encode(output{
		Success:   true,
		Message:   res.Message(),
		Processed: res.Processed,
		Succeeded: res.Succeeded,
		Failed:    res.Failed,
		Errors:    res.Errors,
	})
	return 0
}

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	code := run(ctx, app, os.Stdout, log.Default())
	stop()
	os.Exit(code)
}
