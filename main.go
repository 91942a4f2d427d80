package main

import (
	"flag"
	"log"

	"yashubustudio/labmatcher/internal/app"
)

func main() {
	configPath := flag.String("config", "", "Path to config.json/.yaml/.toml (default: ./config.json)")
	flag.Parse()
	if err := app.Run(*configPath); err != nil {
		log.Fatalf("labmatcher: %v", err)
	}
}
