package main

import (
	"log"

	"github.com/joho/godotenv"

	"shopbot/core/bootstrap"
	"shopbot/core/cmd"
	coreconfig "shopbot/core/config"
	"shopbot/internal/bot"
)

type configCarrier struct {
	cfg *coreconfig.Config
}

func (c configCarrier) CoreConfig() *coreconfig.Config { return c.cfg }

func main() {
	// Local development convenience; missing .env is not an error.
	_ = godotenv.Load()

	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			cfg, err := coreconfig.Load(path)
			if err != nil {
				return nil, err
			}
			return configCarrier{cfg: cfg}, nil
		},
		Bootstrap: func(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
			cfg := carrier.CoreConfig()
			res, err := bootstrap.Run(bootstrap.Options{Config: cfg})
			if err != nil {
				return nil, err
			}
			return bot.New(cfg, res.DB)
		},
	})
	if err != nil {
		log.Fatalf("shopbot: %v", err)
	}
}
