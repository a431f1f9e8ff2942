package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fakuventuri/game-server-client/network"
	"github.com/fakuventuri/game-server-client/server"
)

func main() {
	config := server.Config{
		Transport: network.FramedTCP,
		Addr:      server.DefaultAddr,
	}

	rootCmd := &cobra.Command{
		Use:   "server",
		Short: "Answer every ping with the number of pings seen on that connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(config)
		},
		SilenceUsage: true,
	}

	flags := rootCmd.Flags()
	flags.Var(&config.Transport, "transport", "Transport to listen on: framed-tcp, udp or ws")
	flags.StringVar(&config.Addr, "listen", config.Addr, "Address to listen on")
	flags.StringVar(&config.MetricsAddr, "metrics-addr", "", "Address to serve Prometheus metrics on, disabled when empty")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(config server.Config) error {
	log.Println("Server started")

	s := server.New(config)
	if _, err := s.Listen(); err != nil {
		log.Printf("Can not listening at %s by %s", config.Addr, config.Transport)
		return err
	}

	// Channel to listen to interrupt signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)
	go func() {
		if _, ok := <-stop; ok {
			s.Stop()
			fmt.Println("Server stopped")
		}
	}()

	return s.Run()
}
