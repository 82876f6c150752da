package main

import (
	"os"

	"github.com/reviewboard/rbdiff/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
