package main

import (
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/punchamoorthee/paygate/internal/config"
	"github.com/punchamoorthee/paygate/internal/mockgateway"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using process environment")
	}

	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatal(err)
	}

	gw := mockgateway.New(mockgateway.Options{
		PrivateKey: cfg.PrivateKey,
		JWTSecret:  []byte(os.Getenv("MOCK_JWT_SECRET")),
	})
	if cfg.PrivateKey == "" {
		log.Println("PAYGATE_PRIVATE_KEY not set, accepting any key")
	}

	log.Printf("Mock gateway starting on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, gw.Handler()); err != nil {
		log.Fatal(err)
	}
}
