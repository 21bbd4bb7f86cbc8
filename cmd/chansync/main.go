package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/goliatone/go-chansync"
)

// moduleRunner is the part of the module the CLI drives.
type moduleRunner interface {
	Run(ctx context.Context) error
	Bootstrap(ctx context.Context) error
	DeletePosts(ctx context.Context, ids string, revoke bool) error
	SyncInfo(ctx context.Context, logo, stat bool) error
	Preview(ctx context.Context, id int64, output string) error
}

var moduleBuilder = func(opts chansync.LoadOptions) (moduleRunner, error) {
	cfg, err := chansync.LoadConfig(opts)
	if err != nil {
		return nil, err
	}
	return chansync.New(cfg)
}

const usage = `usage: chansync [-config name] [-config-path dir] [-env file] <command> [flags]

commands:
  run        bootstrap the site and mirror live channel posts
  bootstrap  clone the site and seed it from the channel export
  delete     delete posts: -ids 1,2,3 [-revoke]
  sync-info  refresh channel info: [-logo] [-stat]
  preview    render a stored post to HTML: -id 42 [-o file]
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		log.Fatalf("chansync: %v", err)
	}
}

func run(ctx context.Context, args []string) error {
	global := flag.NewFlagSet("chansync", flag.ContinueOnError)
	global.Usage = func() { fmt.Fprint(global.Output(), usage) }
	configName := global.String("config", "config", "Config file name without extension")
	configPath := global.String("config-path", ".", "Directory searched for the config file")
	envFile := global.String("env", ".env", "Env file loaded before the environment")
	if err := global.Parse(args); err != nil {
		return err
	}

	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return errors.New("command is required")
	}

	module, err := moduleBuilder(chansync.LoadOptions{
		EnvFiles:    []string{*envFile},
		ConfigName:  *configName,
		ConfigPaths: []string{*configPath},
	})
	if err != nil {
		return fmt.Errorf("bootstrap module: %w", err)
	}

	command, cmdArgs := rest[0], rest[1:]
	switch command {
	case "run":
		return module.Run(ctx)
	case "bootstrap":
		return module.Bootstrap(ctx)
	case "delete":
		return runDelete(ctx, module, cmdArgs)
	case "sync-info":
		return runSyncInfo(ctx, module, cmdArgs)
	case "preview":
		return runPreview(ctx, module, cmdArgs)
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func runDelete(ctx context.Context, module moduleRunner, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	ids := fs.String("ids", "", "Comma separated post ids")
	revoke := fs.Bool("revoke", false, "Also delete the channel messages")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := module.DeletePosts(ctx, strings.TrimSpace(*ids), *revoke); err != nil {
		return fmt.Errorf("execute delete command: %w", err)
	}
	fmt.Fprintf(os.Stdout, "deleted posts %s\n", *ids)
	return nil
}

func runSyncInfo(ctx context.Context, module moduleRunner, args []string) error {
	fs := flag.NewFlagSet("sync-info", flag.ContinueOnError)
	logo := fs.Bool("logo", false, "Download the channel photo")
	stat := fs.Bool("stat", false, "Refresh subscriber and post counts")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := module.SyncInfo(ctx, *logo, *stat); err != nil {
		return fmt.Errorf("execute sync-info command: %w", err)
	}
	return nil
}

func runPreview(ctx context.Context, module moduleRunner, args []string) error {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	id := fs.Int64("id", 0, "Post id to render")
	output := fs.String("o", "", "Write HTML to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := module.Preview(ctx, *id, *output); err != nil {
		return fmt.Errorf("execute preview command: %w", err)
	}
	return nil
}
