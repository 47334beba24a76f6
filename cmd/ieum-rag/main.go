// Package main is the entry point for the ieum-rag service.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	_ "go.uber.org/automaxprocs"

	"github.com/kart-io/ieum/cmd/ieum-rag/app"
)

func main() {
	// .env 不存在时忽略
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}
	app.NewApp().Run()
}
