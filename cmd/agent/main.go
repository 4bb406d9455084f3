package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shayra-ai/license-server/internal/agent"
	"github.com/shayra-ai/license-server/internal/agent/config"
	"github.com/shayra-ai/license-server/internal/client"
)

func main() {
	conf := config.MustLoad()

	licenseAgent := agent.NewLicenseAgent(conf.DeviceID, client.New(conf.ServerAddress))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if conf.Coupon != "" {
		if err := licenseAgent.Activate(ctx, conf.Coupon); err != nil {
			log.Printf("coupon activation failed: %s\n", err.Error())
		}
	}

	err := licenseAgent.Run(ctx, time.Duration(conf.PollInterval)*time.Second, time.Duration(conf.NotifyInterval)*time.Second)

	if err != nil {
		log.Printf("license agent stop: %s\n", err.Error())
	} else {
		log.Println("license agent stop")
	}
}
