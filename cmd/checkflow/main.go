package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/checkflow/checkflow/internal/cli"
	"github.com/checkflow/checkflow/internal/xerrors"
)

func main() {
	if err := cli.Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}

		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		if xerrors.IsConfigError(err) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}
