package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coffeebreak/internal/app"
	"coffeebreak/internal/schedule"
)

func main() {
	var (
		cfgPath  string
		actsPath string
		once     bool
	)
	flag.StringVar(&cfgPath, "config", "./coffeebreak.yaml", "path to config (json or yaml)")
	flag.StringVar(&actsPath, "activities", "", "activity feed to group; the payload is printed to stdout")
	flag.BoolVar(&once, "once", false, "exit after building instead of serving and watching config")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	if once {
		err := a.Init(ctx)
		if err == nil && actsPath != "" {
			err = printPayload(ctx, a, actsPath)
		}
		_ = a.Stop(context.Background(), app.StopOnce)
		if err != nil {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			os.Exit(1)
		}
		return
	}

	if err := a.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fatal start:", err)
		_ = a.Stop(context.Background(), app.StopFatalError)
		os.Exit(1)
	}
	if actsPath != "" {
		if err := printPayload(ctx, a, actsPath); err != nil {
			a.Logger().Error(err.Error())
		}
	}

	reason := app.StopSIGINT
	select {
	case <-ctx.Done():
	case <-a.Done():
		reason = app.StopFatalError
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	_ = a.Stop(stopCtx, reason)
	if err := a.Err(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func printPayload(ctx context.Context, a *app.App, path string) error {
	acts, err := schedule.LoadActivities(path)
	if err != nil {
		return err
	}
	p, err := a.Schedule().Build(ctx, acts)
	if err != nil {
		return err
	}
	return schedule.WritePayload(os.Stdout, p)
}
