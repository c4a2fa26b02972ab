package main

import (
	"os"

	"github.com/openpst/go-qcboot/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
