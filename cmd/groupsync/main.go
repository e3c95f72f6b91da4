// Package main provides the entry point for groupsync.
//
// groupsync creates missing directory groups and adds their members from a
// snapshot file, against Amazon Cognito user pools or Active Directory.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/isometry/groupsync/internal/command"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := command.Run(ctx, os.Args, command.Options{})
	stop()
	os.Exit(code)
}
