package main

import (
	"os"

	"github.com/Amila1P/portfolio/cmd"
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
