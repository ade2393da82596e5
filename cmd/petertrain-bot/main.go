package main

import (
	"log"

	"github.com/surokacs/petertrain-bot/core/cmd"
	"github.com/surokacs/petertrain-bot/shop/app"
	"github.com/surokacs/petertrain-bot/shop/config"
)

func main() {
	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			return config.Load(path)
		},
		Bootstrap: app.Bootstrap,
	})
	if err != nil {
		log.Fatal(err)
	}
}
