// Load generator for the telemetry API. Sends randomized create requests
// (a configurable share intentionally invalid), verifies per-satellite
// counts through the filter params, deletes the healthy records it created
// and dumps the first result page to CSV.
//
// Run against a local server:
//
//	go run ./cmd/loadgen -url http://localhost:8080/telemetry -total 1000 -concurrency 100
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type telemetryRecord struct {
	ID          uint    `json:"id"`
	SatelliteID string  `json:"satelliteId"`
	Timestamp   string  `json:"timestamp"`
	Altitude    float64 `json:"altitude"`
	Velocity    float64 `json:"velocity"`
	Status      string  `json:"status"`
}

type telemetryPage struct {
	Items []telemetryRecord `json:"items"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Size  int               `json:"size"`
	Pages int64             `json:"pages"`
}

type counters struct {
	mu       sync.Mutex
	created  map[string]map[string]int // satellite -> status -> count
	rejected int
	failed   int
}

func (c *counters) addCreated(sat, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.created[sat] == nil {
		c.created[sat] = make(map[string]int)
	}
	c.created[sat][status]++
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080/telemetry", "telemetry endpoint")
	total := flag.Int("total", 1000, "number of create requests")
	concurrency := flag.Int("concurrency", 100, "concurrent requests")
	errorRate := flag.Float64("error-rate", 0.05, "share of intentionally invalid payloads")
	satCount := flag.Int("sat-count", 10, "number of distinct satellites")
	pageSize := flag.Int("page-size", 100, "page size for listing/cleanup")
	noCleanup := flag.Bool("no-cleanup", false, "skip pre-run cleanup of previous load records")
	cleanupPrefix := flag.String("cleanup-prefix", "LOAD-", "satelliteId prefix to clean up")
	outFile := flag.String("out", "first_page_results.csv", "CSV file for the first result page")
	flag.Parse()

	client := &http.Client{Timeout: 15 * time.Second}

	if !*noCleanup {
		removed := cleanup(client, *baseURL, *cleanupPrefix, *pageSize)
		log.Printf("Cleanup removed %d previous load records", removed)
	}

	runID := time.Now().UTC().Format("150405")
	satellites := makeSatelliteList(runID, *satCount)

	stats := &counters{created: make(map[string]map[string]int)}

	start := time.Now()
	var g errgroup.Group
	g.SetLimit(*concurrency)

	for i := 0; i < *total; i++ {
		sat := satellites[i%len(satellites)]
		invalid := rand.Float64() < *errorRate

		g.Go(func() error {
			payload := buildPayload(sat, invalid)
			status, body, err := postJSON(client, *baseURL, payload)
			if err != nil {
				stats.mu.Lock()
				stats.failed++
				stats.mu.Unlock()
				return nil
			}

			switch {
			case invalid && status == http.StatusUnprocessableEntity:
				stats.mu.Lock()
				stats.rejected++
				stats.mu.Unlock()
			case !invalid && status == http.StatusOK:
				var rec telemetryRecord
				if err := json.Unmarshal(body, &rec); err == nil {
					stats.addCreated(rec.SatelliteID, rec.Status)
				}
			default:
				log.Printf("Unexpected status %d (invalid=%v): %s", status, invalid, body)
				stats.mu.Lock()
				stats.failed++
				stats.mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	elapsed := time.Since(start)
	createdTotal := 0
	for _, byStatus := range stats.created {
		for _, n := range byStatus {
			createdTotal += n
		}
	}
	log.Printf("Done in %v: %d created, %d rejected as expected, %d failed (%.0f req/s)",
		elapsed, createdTotal, stats.rejected, stats.failed,
		float64(*total)/elapsed.Seconds())

	verifyCounts(client, *baseURL, stats)

	deleted := deleteByFilter(client, *baseURL, satellites, "healthy", *pageSize)
	log.Printf("Deleted %d healthy records from this run", deleted)
	verifyOnlyCritical(client, *baseURL, satellites)

	if err := saveFirstPage(client, *baseURL, *pageSize, *outFile); err != nil {
		log.Printf("Failed to save first page: %v", err)
	} else {
		log.Printf("First page saved to %s", *outFile)
	}
}

func makeSatelliteList(runID string, count int) []string {
	sats := make([]string, count)
	for i := range sats {
		sats[i] = fmt.Sprintf("LOAD-%s-SAT-%03d", runID, i)
	}
	return sats
}

func buildPayload(satelliteID string, invalid bool) map[string]interface{} {
	status := "healthy"
	if rand.Float64() < 0.2 {
		status = "critical"
	}

	payload := map[string]interface{}{
		"satelliteId": satelliteID,
		"timestamp":   time.Now().UTC().Format("2006-01-02T15:04:05"),
		"altitude":    160.0 + rand.Float64()*35626.0,
		"velocity":    0.5 + rand.Float64()*7.5,
		"status":      status,
	}

	if !invalid {
		return payload
	}

	switch rand.Intn(5) {
	case 0:
		payload["velocity"] = -1.0
	case 1:
		payload["status"] = "unknown_status"
	case 2:
		payload["satelliteId"] = strings.Repeat("S", 65)
	case 3:
		delete(payload, "timestamp")
	default:
		payload["altitude"] = 0.0
	}
	return payload
}

func cleanup(client *http.Client, baseURL, prefix string, pageSize int) int {
	removed := 0
	for {
		page, err := fetchPage(client, baseURL, url.Values{"size": {fmt.Sprint(pageSize)}})
		if err != nil {
			log.Printf("Cleanup list failed: %v", err)
			return removed
		}

		ids := make([]uint, 0)
		for _, item := range page.Items {
			if strings.HasPrefix(item.SatelliteID, prefix) {
				ids = append(ids, item.ID)
			}
		}
		if len(ids) == 0 {
			return removed
		}
		progress := 0
		for _, id := range ids {
			if deleteRecord(client, baseURL, id) {
				removed++
				progress++
			}
		}
		if progress == 0 {
			log.Printf("Cleanup stalled with %d records left", len(ids))
			return removed
		}
	}
}

func verifyCounts(client *http.Client, baseURL string, stats *counters) {
	mismatches := 0
	for sat, byStatus := range stats.created {
		for status, want := range byStatus {
			page, err := fetchPage(client, baseURL, url.Values{
				"satelliteId": {sat},
				"status":      {status},
				"size":        {"1"},
			})
			if err != nil {
				log.Printf("Verify failed for %s/%s: %v", sat, status, err)
				mismatches++
				continue
			}
			if page.Total != int64(want) {
				log.Printf("Count mismatch for %s/%s: created %d, API reports %d",
					sat, status, want, page.Total)
				mismatches++
			}
		}
	}
	if mismatches == 0 {
		log.Println("All per-satellite counts verified")
	}
}

func deleteByFilter(client *http.Client, baseURL string, satellites []string, status string, pageSize int) int {
	deleted := 0
	for _, sat := range satellites {
		for {
			page, err := fetchPage(client, baseURL, url.Values{
				"satelliteId": {sat},
				"status":      {status},
				"size":        {fmt.Sprint(pageSize)},
			})
			if err != nil || len(page.Items) == 0 {
				break
			}
			progress := 0
			for _, item := range page.Items {
				if deleteRecord(client, baseURL, item.ID) {
					deleted++
					progress++
				}
			}
			if progress == 0 {
				break
			}
		}
	}
	return deleted
}

func verifyOnlyCritical(client *http.Client, baseURL string, satellites []string) {
	for _, sat := range satellites {
		page, err := fetchPage(client, baseURL, url.Values{
			"satelliteId": {sat},
			"status":      {"healthy"},
			"size":        {"1"},
		})
		if err != nil {
			log.Printf("Post-delete verify failed for %s: %v", sat, err)
			continue
		}
		if page.Total != 0 {
			log.Printf("Satellite %s still has %d healthy records", sat, page.Total)
		}
	}
	log.Println("Post-delete verification finished")
}

func saveFirstPage(client *http.Client, baseURL string, pageSize int, outFile string) error {
	page, err := fetchPage(client, baseURL, url.Values{
		"page": {"1"},
		"size": {fmt.Sprint(pageSize)},
	})
	if err != nil {
		return err
	}

	file, err := os.Create(outFile)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"id", "satellite_id", "timestamp", "altitude", "velocity", "status"}); err != nil {
		return err
	}
	for _, item := range page.Items {
		row := []string{
			fmt.Sprint(item.ID),
			item.SatelliteID,
			item.Timestamp,
			fmt.Sprintf("%.3f", item.Altitude),
			fmt.Sprintf("%.3f", item.Velocity),
			item.Status,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	return writer.Error()
}

func fetchPage(client *http.Client, baseURL string, params url.Values) (*telemetryPage, error) {
	resp, err := client.Get(baseURL + "?" + params.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list returned status %d", resp.StatusCode)
	}

	var page telemetryPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, err
	}
	return &page, nil
}

func postJSON(client *http.Client, baseURL string, payload map[string]interface{}) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	resp, err := client.Post(baseURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	return resp.StatusCode, buf.Bytes(), nil
}

func deleteRecord(client *http.Client, baseURL string, id uint) bool {
	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/%d", baseURL, id), nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
