package main

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/thesyncim/webdrive/pkg/console"
)

type loggerKey struct{}

// withLogger attaches lg to ctx so subcommands share the -verbose setting.
func withLogger(ctx context.Context, lg *logrus.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, lg)
}

// loggerFrom returns the logger attached by withLogger, or a non-verbose
// logger writing to out.
func loggerFrom(ctx context.Context, out io.Writer) *logrus.Logger {
	if lg, ok := ctx.Value(loggerKey{}).(*logrus.Logger); ok {
		return lg
	}
	return console.New(out, false)
}
