package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-meeting/internal/app"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/cli"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/meeting"
	"github.com/ovaphlow/pitchfork/service-meeting/pkg/utilities"
)

func main() {
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	open := func(ctx context.Context) (*meeting.Service, func() error, error) {
		a, err := app.New(ctx, app.ConfigFromEnv(), lg.Sugar())
		if err != nil {
			return nil, nil, err
		}
		return a.Service, a.Close, nil
	}

	if err := cli.NewRootCommand(open).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
