//go:build ignore

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const baseURL = "http://localhost:8080"

var (
	origins      = []string{"Koramangala", "Indiranagar", "Whitefield", "HSR Layout"}
	destinations = []string{"Airport", "Majestic", "Electronic City", "Hebbal"}
)

type Stats struct {
	TotalRequests   int64
	SuccessRequests int64
	FailedRequests  int64
	TotalLatency    int64
	MinLatency      int64
	MaxLatency      int64
}

func main() {
	rand.Seed(time.Now().UnixNano())

	fmt.Println("RidePool Load Test")
	fmt.Println("==================")

	fmt.Println("\n1. Creating test rides...")
	rideIDs := createTestRides(50)
	if len(rideIDs) == 0 {
		log.Fatal("Failed to create test rides")
	}
	fmt.Printf("Created %d rides\n", len(rideIDs))

	fmt.Println("\n2. Testing ride listing (1000 requests, 50 concurrent)...")
	stats := testListings(1000, 50)
	printStats("Ride Listings", stats)

	fmt.Println("\n3. Testing booking contention (100 passengers, one 1-seat ride)...")
	winners, stats := testBookingContention()
	printStats("Booking Contention", stats)
	fmt.Printf("  Seats Won:        %d (must be exactly 1)\n", winners)

	fmt.Println("\nLoad test completed!")
}

func newRequest(method, url, userID, role string, payload interface{}) *http.Request {
	var body io.Reader
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewBuffer(data)
	}
	req, _ := http.NewRequest(method, url, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID)
	req.Header.Set("X-User-Role", role)
	return req
}

func createTestRides(count int) []string {
	rideIDs := make([]string, 0)

	for i := 0; i < count; i++ {
		ride := map[string]interface{}{
			"origin":       origins[rand.Intn(len(origins))],
			"destination":  destinations[rand.Intn(len(destinations))],
			"price":        float64(50 + rand.Intn(450)),
			"capacity":     1 + rand.Intn(4),
			"departure_at": time.Now().Add(time.Duration(1+rand.Intn(48)) * time.Hour).Format(time.RFC3339),
		}

		req := newRequest("POST", baseURL+"/v1/rides", fmt.Sprintf("loadtest-driver-%d", i), "driver", ride)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			continue
		}

		if resp.StatusCode == 201 {
			var result map[string]interface{}
			json.NewDecoder(resp.Body).Decode(&result)
			if id, ok := result["id"].(string); ok {
				rideIDs = append(rideIDs, id)
			}
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	return rideIDs
}

func testListings(numRequests, concurrency int) *Stats {
	stats := &Stats{MinLatency: int64(^uint64(0) >> 1)}
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, concurrency)

	for i := 0; i < numRequests; i++ {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(i int) {
			defer wg.Done()
			defer func() { <-semaphore }()

			userID := fmt.Sprintf("loadtest-viewer-%d", i%20)
			req := newRequest("GET", baseURL+"/v1/rides", userID, "passenger", nil)

			start := time.Now()
			resp, err := http.DefaultClient.Do(req)
			latency := time.Since(start).Milliseconds()

			record(stats, latency, err == nil && resp != nil && resp.StatusCode == 200)
			if resp != nil {
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}
		}(i)
	}

	wg.Wait()
	return stats
}

// testBookingContention points 100 concurrent passengers at a single
// 1-seat ride. The server must hand out exactly one booking; everyone
// else gets a 409.
func testBookingContention() (int64, *Stats) {
	stats := &Stats{MinLatency: int64(^uint64(0) >> 1)}

	ride := map[string]interface{}{
		"origin":       "Koramangala",
		"destination":  "Airport",
		"price":        300.0,
		"capacity":     1,
		"departure_at": time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	}
	req := newRequest("POST", baseURL+"/v1/rides", "loadtest-contention-driver", "driver", ride)
	resp, err := http.DefaultClient.Do(req)
	if err != nil || resp.StatusCode != 201 {
		log.Fatal("Failed to create contention ride")
	}
	var created map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	rideID := created["id"].(string)

	var winners int64
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			userID := fmt.Sprintf("loadtest-passenger-%d", i)
			req := newRequest("POST", baseURL+"/v1/rides/"+rideID+"/bookings", userID, "passenger", nil)

			start := time.Now()
			resp, err := http.DefaultClient.Do(req)
			latency := time.Since(start).Milliseconds()

			ok := err == nil && resp != nil && (resp.StatusCode == 201 || resp.StatusCode == 409)
			record(stats, latency, ok)
			if resp != nil {
				if resp.StatusCode == 201 {
					atomic.AddInt64(&winners, 1)
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}
		}(i)
	}

	wg.Wait()
	return winners, stats
}

func record(stats *Stats, latency int64, ok bool) {
	atomic.AddInt64(&stats.TotalRequests, 1)
	atomic.AddInt64(&stats.TotalLatency, latency)

	if !ok {
		atomic.AddInt64(&stats.FailedRequests, 1)
		return
	}
	atomic.AddInt64(&stats.SuccessRequests, 1)

	for {
		old := atomic.LoadInt64(&stats.MinLatency)
		if latency >= old || atomic.CompareAndSwapInt64(&stats.MinLatency, old, latency) {
			break
		}
	}
	for {
		old := atomic.LoadInt64(&stats.MaxLatency)
		if latency <= old || atomic.CompareAndSwapInt64(&stats.MaxLatency, old, latency) {
			break
		}
	}
}

func printStats(name string, stats *Stats) {
	avgLatency := float64(0)
	if stats.TotalRequests > 0 {
		avgLatency = float64(stats.TotalLatency) / float64(stats.TotalRequests)
	}

	fmt.Printf("\n%s Results:\n", name)
	fmt.Printf("  Total Requests:   %d\n", stats.TotalRequests)
	fmt.Printf("  Successful:       %d\n", stats.SuccessRequests)
	fmt.Printf("  Failed:           %d\n", stats.FailedRequests)
	fmt.Printf("  Success Rate:     %.2f%%\n", float64(stats.SuccessRequests)/float64(stats.TotalRequests)*100)
	fmt.Printf("  Avg Latency:      %.2f ms\n", avgLatency)
	if stats.MinLatency != int64(^uint64(0)>>1) {
		fmt.Printf("  Min Latency:      %d ms\n", stats.MinLatency)
	}
	fmt.Printf("  Max Latency:      %d ms\n", stats.MaxLatency)
}
