package main

import (
	"os"

	"github.com/daideguchi/dental-ai-counseling-system/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
