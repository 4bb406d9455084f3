package config

import (
	"flag"
	"log"
	"os"
	"strconv"

	"github.com/google/uuid"
)

type Config struct {
	PollInterval   int64
	NotifyInterval int64
	ServerAddress  string
	DeviceID       string
	Coupon         string
}

func MustLoad() Config {
	var conf Config

	flag.Int64Var(&conf.PollInterval, "p", 30, "interval for refreshing license status in seconds")
	flag.Int64Var(&conf.NotifyInterval, "n", 60, "interval for checking notifications in seconds")
	flag.StringVar(&conf.ServerAddress, "a", "localhost:5005", "license server address")
	flag.StringVar(&conf.DeviceID, "d", "", "device id, generated when empty")
	flag.StringVar(&conf.Coupon, "c", "", "coupon code to activate on start")

	flag.Parse()

	if address := os.Getenv("ADDRESS"); address != "" {
		conf.ServerAddress = address
	}

	if deviceID := os.Getenv("DEVICE_ID"); deviceID != "" {
		conf.DeviceID = deviceID
	}

	if coupon := os.Getenv("COUPON"); coupon != "" {
		conf.Coupon = coupon
	}

	if val := os.Getenv("POLL_INTERVAL"); val != "" {
		interval, err := strconv.Atoi(val)
		if err != nil {
			log.Fatal("cant parse POLL_INTERVAL:", err)
		}

		conf.PollInterval = int64(interval)
	}

	if val := os.Getenv("NOTIFY_INTERVAL"); val != "" {
		interval, err := strconv.Atoi(val)
		if err != nil {
			log.Fatal("cant parse NOTIFY_INTERVAL:", err)
		}

		conf.NotifyInterval = int64(interval)
	}

	if conf.DeviceID == "" {
		conf.DeviceID = uuid.NewString()
	}

	return conf
}
