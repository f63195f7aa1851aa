package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is the normal production case.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(buildApp).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "dropscout: %v\n", err)
		stop()
		os.Exit(1)
	}
}
