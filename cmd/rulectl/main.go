// Command rulectl runs monitor commands and edits settings grids from the
// shell. Without DATABASE_URL it works against an in-memory store, which
// suits one-shot runs over an ENTITY_FILE.
package main

import (
	"fmt"
	"os"

	_ "github.com/JonMunkholm/rulegrid/internal/core/rules" // Register all rules
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd(openEnv).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
