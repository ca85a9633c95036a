package main

import (
	"os"

	"github.com/latrix/insider/internal/insiderctl"
)

func main() {
	os.Exit(insiderctl.Run("insiderctl", os.Args[1:], os.Stdout, os.Stderr))
}
