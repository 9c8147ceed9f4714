package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"

	"github.com/dx-junkyard/interest-category-matching/internal/bootstrap"
	"github.com/dx-junkyard/interest-category-matching/internal/config"
	"github.com/dx-junkyard/interest-category-matching/internal/observability/logging"
)

// One-shot resolution from the command line, the way the matching was
// originally run: text in, top matches as JSON out.
func main() {
	text := flag.String("text", "", "free text to resolve against the taxonomy")
	flag.Parse()

	if *text == "" {
		fmt.Fprintln(os.Stderr, "usage: resolve -text <free text>")
		os.Exit(2)
	}

	cfg := config.Load()
	logger := logging.NewJSONLogger("resolve", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx := context.Background()
	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	matches, err := app.Resolver.Resolve(ctx, *text)
	if err != nil {
		log.Fatalf("resolve error: %v", err)
	}
	if len(matches) == 0 {
		fmt.Println("no matches found")
		return
	}

	for i := range matches {
		matches[i].Similarity = math.Round(matches[i].Similarity*10000) / 10000
	}
	out, err := json.MarshalIndent(matches, "", "  ")
	if err != nil {
		log.Fatalf("marshal matches: %v", err)
	}
	fmt.Println(string(out))
}
