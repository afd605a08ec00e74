package main

import (
	"os"

	"github.com/petasbytes/lucius/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
