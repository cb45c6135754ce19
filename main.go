package main

import (
	"os"

	"github.com/jandubois/activity-tracker/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
