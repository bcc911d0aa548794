// Command scene-check validates scene files without opening a terminal
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/lixenwraith/toymaker/aspects"
	"github.com/lixenwraith/toymaker/config"
	"github.com/lixenwraith/toymaker/engine"
	"github.com/lixenwraith/toymaker/query"
	"github.com/lixenwraith/toymaker/resource"
	"github.com/lixenwraith/toymaker/scene"
)

var (
	loadFlag    = flag.Bool("load", false, "Also build each scene into a scratch world, loading its resources")
	assetsFlag  = flag.String("assets", "", "Asset directory for file-backed resources")
	verboseFlag = flag.Bool("v", false, "Log engine activity to stderr")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: scene-check [flags] scene.yaml...\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	level := "warn"
	if *verboseFlag {
		level = "debug"
	}
	log, err := config.NewLogger(config.LoggingConfig{Level: level, Format: "console", File: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	failed := 0
	for _, path := range flag.Args() {
		if err := check(context.Background(), log, path, *loadFlag, *assetsFlag); err != nil {
			failed++
			fmt.Printf("FAIL %s\n", path)
			for _, e := range flatten(err) {
				fmt.Printf("  %v\n", e)
			}
			continue
		}
		fmt.Printf("ok   %s\n", path)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// check validates one scene file against an empty world
// With load set the scene is also built, then unloaded
func check(ctx context.Context, log *zap.Logger, path string, load bool, assets string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	doc, err := scene.Parse(data)
	if err != nil {
		return err
	}
	if doc.Name == "" {
		base := filepath.Base(path)
		doc.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	w := engine.NewWorld(engine.WithLogger(log))
	if _, err := query.NewSystem(w); err != nil {
		return err
	}
	var opts []resource.Option
	opts = append(opts, resource.WithLogger(log), resource.WithStatus(w.Status))
	if assets != "" {
		opts = append(opts, resource.WithAssets(os.DirFS(assets)))
	}
	reg := scene.NewRegistry()
	aspects.Register(reg)
	loader := scene.NewLoader(w, resource.NewDB(opts...), reg)

	if err := loader.Validate(doc); err != nil {
		return err
	}
	if !load {
		return nil
	}
	sc, err := loader.Load(ctx, doc)
	if err != nil {
		return err
	}
	w.Step(0)
	return sc.Unload()
}

// flatten splits joined errors so each problem prints on its own line
func flatten(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range j.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	var wrapped interface{ Unwrap() []error }
	if errors.As(err, &wrapped) {
		return flatten(wrapped.(error))
	}
	return []error{err}
}
