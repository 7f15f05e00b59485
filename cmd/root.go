package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"autocheckout/internal/checkout"
)

// exitCodeError carries a non-zero exit status without printing anything.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "autocheckout",
		Short:         "Daily automatic checkout of open hotel bookings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newRunCmd("run", "Run the scheduled checkout (window and daily gates apply)", checkout.KindScheduled))
	root.AddCommand(newRunCmd("test", "Run a manual checkout now, bypassing the window and daily gate", checkout.KindManual))
	root.AddCommand(newRunCmd("force", "Close every open booking, including already-processed ones", checkout.KindForced))
	root.AddCommand(newStatusCmd())
	root.AddCommand(newBootstrapCmd())

	return root
}

func execute() int {
	err := newRootCmd().Execute()
	var exitErr *exitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
