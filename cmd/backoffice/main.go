// filepath: cmd/backoffice/main.go
package main

import (
	"backoffice/internal/cli"
)

func main() {
	// Delegate all execution to the CLI package
	cli.Execute()
}
