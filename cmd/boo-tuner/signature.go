package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/kballard/go-shellquote"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/boo-tuner/internal/miopen"
)

func signatureCmd() *cli.Command {
	return &cli.Command{
		Name:      "signature",
		Usage:     "Parse a driver command and print the kernel it describes",
		ArgsUsage: "[DRIVER ARGS...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			sig, err := miopen.Parse(cmd.Args().Slice())
			if err != nil {
				return exitError(err)
			}
			printSignature(os.Stdout, sig)
			return nil
		},
	}
}

func printSignature(w io.Writer, sig miopen.Signature) {
	_, _ = fmt.Fprintf(w, "name:      %s\n", sig.Name())
	_, _ = fmt.Fprintf(w, "direction: %s\n", sig.Direction)
	_, _ = fmt.Fprintf(w, "output:    %v\n", sig.OutputSize())
	_, _ = fmt.Fprintf(w, "driver:    %s\n", shellquote.Join(sig.DriverArgs()...))
}
