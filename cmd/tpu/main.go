package main

import (
	"fmt"
	"os"

	"github.com/teranos/tpu/cmd/tpu/commands"
	"github.com/teranos/tpu/errors"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
		}
		os.Exit(1)
	}
}
