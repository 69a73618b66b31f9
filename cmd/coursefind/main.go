package main

import (
	"github.com/joho/godotenv"

	"github.com/kailas-cloud/coursefind/internal/cli"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cli.Execute()
}
