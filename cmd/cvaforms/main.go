// Command cvaforms manages CVA cupping sessions and exports them as flattened PDFs.
package main

import (
	"fmt"
	"os"

	"github.com/jun787/CVA-cupping-forms/internal/logger"
)

func main() {
	err := Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
