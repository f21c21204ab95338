package main

import (
	"log"

	"relaybot/core/cmd"
	"relaybot/relay"
)

func main() {
	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yml",
		LoadConfig:        relay.LoadConfig,
		Bootstrap:         relay.Bootstrap,
	})
	if err != nil {
		log.Fatalf("relaybot: %v", err)
	}
}
