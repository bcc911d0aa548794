package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/lixenwraith/toymaker/asset"
	"github.com/lixenwraith/toymaker/config"
)

var (
	configFlag = flag.String("config", "", "Config file (TOML); empty uses the built-in defaults")
	sceneFlag  = flag.String("scene", "", "Scene file (YAML); overrides scene.path")
	logFlag    = flag.String("log", "", "Log file; overrides logging.file")
)

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if *configFlag != "" {
		cfg, err = config.Load(*configFlag)
	} else {
		cfg, err = config.Parse(asset.DefaultConfig)
	}
	if err != nil {
		return nil, err
	}
	if *sceneFlag != "" {
		cfg.Scene.Path = *sceneFlag
	}
	if *logFlag != "" {
		cfg.Logging.File = *logFlag
	}
	return cfg, nil
}

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config: %v\n", err)
		os.Exit(1)
	}
	log, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger: %v\n", err)
		os.Exit(1)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create screen: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize terminal: %v\n", err)
		os.Exit(1)
	}
	screen.EnableMouse()

	// Panic Recovery: restore the terminal before printing the trace
	defer func() {
		if r := recover(); r != nil {
			screen.Fini()
			fmt.Fprintf(os.Stderr, "\nUR-BOARD CRASHED: %v\nStack Trace:\n%s\n", r, debug.Stack())
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := newApp(ctx, cfg, log, screen, cancel)
	if err != nil {
		screen.Fini()
		log.Error("startup failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Startup: %v\n", err)
		os.Exit(1)
	}

	// Input polling uses a raw goroutine as it blocks on the terminal
	// Events are handed to the loop goroutine, which owns all engine state
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			a.loop.Post(func() { a.handle(ev) })
		}
	}()

	if err := a.loop.Run(ctx); err != nil {
		log.Error("frame loop", zap.Error(err))
	}
	a.close()
	screen.Fini()
}
