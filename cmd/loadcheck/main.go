package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"

	"github.com/punchamoorthee/paygate/internal/config"
	"github.com/punchamoorthee/paygate/internal/domain"
	"github.com/punchamoorthee/paygate/internal/payerr"
	"github.com/punchamoorthee/paygate/internal/service"
)

var (
	targetURL   string
	privateKey  string
	concurrency int
	duration    time.Duration
	workload    string
)

// Metrics
var (
	totalFlows uint64
	charged    uint64
	refunded   uint64
	declined   uint64 // gateway said no
	failLocal  uint64 // usage errors, should stay 0
	failOther  uint64 // transport and refresh failures
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "Gateway base URL")
	flag.StringVar(&privateKey, "key", "", "Private key (default PAYGATE_PRIVATE_KEY)")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&workload, "workload", "uniform", "Workload type: uniform | declines")
}

func main() {
	godotenv.Load()
	flag.Parse()
	if privateKey == "" {
		privateKey = os.Getenv("PAYGATE_PRIVATE_KEY")
	}
	if privateKey == "" {
		privateKey = "s-priv-loadcheck"
	}

	cfg, err := config.FromEnv(privateKey)
	if err != nil {
		log.Fatal(err)
	}
	cfg.BaseURL = targetURL

	// One client for all workers; payments are never shared between them.
	client := service.New(cfg)
	defer client.Close()

	log.Printf("Starting Load Check: %s | Workers: %d | Duration: %s", workload, concurrency, duration)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go worker(&wg, client, start)
	}
	wg.Wait()
	printResults(time.Since(start))
}

func worker(wg *sync.WaitGroup, client *service.Client, start time.Time) {
	defer wg.Done()
	ctx := context.Background()

	card := domain.NewCard()
	card.Number = "4711100000000000"
	card.ExpiryDate = "12/2030"
	card.CVC = "123"
	if err := client.Create(ctx, card); err != nil {
		log.Printf("worker could not create card: %v", err)
		atomic.AddUint64(&failOther, 1)
		return
	}

	for time.Since(start) < duration {
		atomic.AddUint64(&totalFlows, 1)
		ch, pay, err := client.Charge(ctx, card, service.TxParams{
			Amount:    nextAmount(),
			Currency:  "EUR",
			ReturnURL: "https://example.com/return",
			OrderID:   fmt.Sprintf("load-%d", time.Now().UnixNano()),
		})
		if err != nil {
			count(err)
			continue
		}
		atomic.AddUint64(&charged, 1)

		if _, err := client.CancelCharge(ctx, pay, ch, 0); err != nil {
			count(err)
			continue
		}
		atomic.AddUint64(&refunded, 1)
	}
}

func count(err error) {
	var (
		apiErr *payerr.APIError
		local  *payerr.LocalError
	)
	switch {
	case errors.As(err, &local):
		atomic.AddUint64(&failLocal, 1)
	case errors.As(err, &apiErr) && !errors.As(err, new(*payerr.RefreshError)):
		atomic.AddUint64(&declined, 1)
	default:
		atomic.AddUint64(&failOther, 1)
	}
}

func nextAmount() domain.Amount {
	if workload == "declines" && rand.Float32() < 0.10 {
		// Magic amount the mock gateway declines
		return 666
	}
	return domain.Amount(1+rand.Intn(50000)) / 100
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalFlows)
	ok := atomic.LoadUint64(&refunded)

	results := map[string]interface{}{
		"workload":       workload,
		"duration_sec":   d.Seconds(),
		"total_flows":    total,
		"throughput_fps": float64(total) / d.Seconds(),
		"charged":        atomic.LoadUint64(&charged),
		"refunded":       ok,
		"declined":       atomic.LoadUint64(&declined),
		"local_errors":   atomic.LoadUint64(&failLocal),
		"errors":         atomic.LoadUint64(&failOther),
	}
	if total > 0 {
		results["completion_pct"] = float64(ok) / float64(total) * 100
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	filename := fmt.Sprintf("loadcheck_%s.json", workload)
	file, err := os.Create(filename)
	if err != nil {
		log.Printf("could not save results: %v", err)
		return
	}
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
