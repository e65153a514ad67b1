package main

import (
	"log"
	"os"

	"SafeDeal/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		log.Println("❌", err)
		os.Exit(1)
	}
}
