package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fakuventuri/game-server-client/client"
	"github.com/fakuventuri/game-server-client/network"
)

func main() {
	config := client.Config{
		Transport: network.FramedTCP,
		Addr:      client.DefaultAddr,
		Interval:  client.DefaultInterval,
	}

	rootCmd := &cobra.Command{
		Use:   "client",
		Short: "Ping the server periodically and print its replies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.Interval <= 0 {
				return errors.New("interval must be greater than zero")
			}
			return run(config)
		},
		SilenceUsage: true,
	}

	flags := rootCmd.Flags()
	flags.Var(&config.Transport, "transport", "Transport to connect with: framed-tcp, udp or ws")
	flags.StringVar(&config.Addr, "server", config.Addr, "The server to ping")
	flags.DurationVar(&config.Interval, "interval", config.Interval, "The interval at which pings are sent")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(config client.Config) error {
	log.Println("Client started")

	c := client.New(config)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)
	go func() {
		if _, ok := <-stop; ok {
			c.Stop()
			fmt.Println("Client stopped")
		}
	}()

	return c.Run()
}
