// Package main fetches the latest Dexcom Share reading once and prints it as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/atinyakov/DexWatch/internal/client/share"
	"github.com/atinyakov/DexWatch/internal/config"
	"github.com/atinyakov/DexWatch/internal/logger"
	"github.com/atinyakov/DexWatch/internal/models"
	"go.uber.org/zap"
)

var (
	version   string
	buildDate string
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-version" || os.Args[1] == "--version") {
		fmt.Printf("DexWatch Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	options := config.Parse()

	log := logger.New()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := share.NewClient(share.NewHTTPClient(options.RequestTimeout.Std()), options.ShareURL, options.Credentials())
	controller := share.NewController(client, options.Controller(), log.Log)

	reading, err := controller.Next(ctx)
	if err != nil {
		log.Log.Error("no reading", zap.Error(err), zap.Stringer("state", controller.State()))
		_ = log.Log.Sync()
		os.Exit(1)
	}

	if err := writeReading(os.Stdout, reading); err != nil {
		log.Log.Error("failed to encode reading", zap.Error(err))
		_ = log.Log.Sync()
		os.Exit(1)
	}
}

// writeReading prints r as indented JSON followed by a newline.
func writeReading(w io.Writer, r models.Reading) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode reading: %w", err)
	}
	if _, err := fmt.Fprintln(w, string(b)); err != nil {
		return fmt.Errorf("write reading: %w", err)
	}
	return nil
}
