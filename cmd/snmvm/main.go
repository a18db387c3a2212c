// Command snmvm is a terminal client for the SNMVM forum: it reads the feed
// and threads and applies likes, comments and replies optimistically.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"snmvm/internal/config"
	"snmvm/internal/observability"

	"github.com/urfave/cli/v2"
)

const version = "0.1.0"

// runtime is the state shared by every command of one invocation.
type runtime struct {
	cfg             *config.Config
	out             io.Writer
	shutdownTracing func(context.Context) error
}

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.App {
	rt := &runtime{out: out}

	return &cli.App{
		Name:    "snmvm",
		Usage:   "read and interact with the SNMVM forum",
		Version: version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output format: `yaml` or json.",
				Value:   "yaml",
			},
		},
		Before: func(ctx *cli.Context) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			rt.cfg = cfg
			observability.SetLevel(cfg.LogLevel)

			shutdown, err := observability.InitTracing(observability.TracingConfig{
				ServiceName:    "snmvm",
				ServiceVersion: version,
				Environment:    cfg.Env,
				BackendURL:     cfg.APIBaseURL,
				Enabled:        cfg.TracingEnabled,
				Exporter:       cfg.TracingExporter,
				OTLPEndpoint:   cfg.OTLPEndpoint,
				SamplerRatio:   1.0,
			})
			if err != nil {
				return fmt.Errorf("initializing tracing: %w", err)
			}
			rt.shutdownTracing = shutdown
			return nil
		},
		After: func(ctx *cli.Context) error {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if rt.cfg != nil && rt.cfg.PushgatewayURL != "" {
				// A failed push never fails the command.
				if err := observability.PushMetrics(shutdownCtx, rt.cfg.PushgatewayURL, rt.cfg.MetricsJob); err != nil {
					observability.GlobalLogger.Warn("metrics push failed", "error", err.Error())
				}
			}
			if rt.shutdownTracing == nil {
				return nil
			}
			return rt.shutdownTracing(shutdownCtx)
		},
		Commands: []*cli.Command{
			loginCommand(rt),
			logoutCommand(rt),
			feedCommand(rt),
			threadCommand(rt),
			commentCommand(rt),
			replyCommand(rt),
			likePostCommand(rt),
			likeCommentCommand(rt),
			deleteCommentCommand(rt),
			devServerCommand(rt),
		},
	}
}
