package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/fakuventuri/game-server-client/client"
	"github.com/fakuventuri/game-server-client/message"
	"github.com/fakuventuri/game-server-client/network"
)

func main() {
	serverAddr := getEnv("SERVER", client.DefaultAddr)
	clients := getEnvInt("CLIENTS", 10)
	intervalMs := getEnvInt("INTERVAL_MS", 100)

	transport, err := network.ParseTransport(getEnv("TRANSPORT", network.FramedTCP.String()))
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("Soak mode: server=%s, transport=%s, clients=%d, interval=%dms", serverAddr, transport, clients, intervalMs)

	running := make([]*client.Client, 0, clients)
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		id := i
		c := client.New(client.Config{
			Transport: transport,
			Addr:      serverAddr,
			Interval:  time.Duration(intervalMs) * time.Millisecond,
			OnReply: func(reply message.ServerMessage) {
				log.Printf("client %d: %s", id, reply)
			},
		})
		running = append(running, c)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Run(); err != nil {
				log.Printf("client %d: %v", id, err)
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-stop:
		log.Println("Shutting down...")
		for _, c := range running {
			c.Stop()
		}
		<-done
	case <-done:
		log.Println("All clients stopped")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
