package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/stitchkit/stitch.go/internal/demo"
	"github.com/stitchkit/stitch.go/pkg/config"
)

func main() {
	opts := demo.DefaultOptions()

	configPath := flag.String("config", "", "YAML config file (STITCH_* variables override it)")
	appID := flag.String("app-id", "", "Client app id; overrides the config file")
	strategy := flag.String("auth", "", "Auth strategy: anonymous, email, apikey, google, facebook, custom")
	flag.StringVar(&opts.Function, "function", opts.Function, "Function to call; empty skips the call")
	argsFlag := flag.String("args", "arg1,arg2", "Comma-separated string arguments for the function")
	flag.StringVar(&opts.Database, "database", opts.Database, "Database to read")
	flag.StringVar(&opts.Collection, "collection", opts.Collection, "Collection to read; empty skips the query")
	flag.BoolVar(&opts.KeepSession, "keep-session", false, "Do not log out at the end")
	flag.Parse()

	opts.Args = nil
	if *argsFlag != "" {
		for _, a := range strings.Split(*argsFlag, ",") {
			opts.Args = append(opts.Args, strings.TrimSpace(a))
		}
	}

	cfg, err := loadConfig(*configPath, *appID, *strategy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	cred, err := cfg.Credential()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	clientCfg, cleanup, err := cfg.Build(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer cleanup()

	if err := demo.Run(ctx, clientCfg, cred, opts, os.Stdout); err != nil {
		stop()
		_ = cleanup()
		os.Exit(1)
	}
}

func loadConfig(path, appID, strategy string) (*config.Config, error) {
	cfg, err := config.Read(path)
	if err != nil {
		return nil, err
	}
	if appID != "" {
		cfg.AppID = appID
	}
	if strategy != "" {
		cfg.Auth.Strategy = strategy
	}
	return cfg, cfg.Validate()
}
