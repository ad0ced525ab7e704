package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"nestodo/app/cli"
)

func main() {
	// Root flags (apply to every subcommand)
	plain := flag.Bool("plain", false, "disable colors")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintHelp(os.Stderr)
		os.Exit(2)
	}

	creds, err := cli.DefaultCredentialStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	baseURL := strings.TrimSpace(os.Getenv("NESTODO_URL"))
	if baseURL == "" {
		baseURL = cli.DefaultBaseURL
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli.Run(ctx, args, cli.Options{
		BaseURL: baseURL,
		Creds:   creds,
		Plain:   *plain,
		In:      os.Stdin,
		Out:     os.Stdout,
		Err:     os.Stderr,
	})
	stop()
	os.Exit(code)
}
