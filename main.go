package main

import (
	"github.com/fpgaflow/fpgaflow/cmd"
)

func main() {
	cmd.Execute()
}
