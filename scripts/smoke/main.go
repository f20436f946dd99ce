package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type check struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Expect   int    `json:"expect"`
	Envelope bool   `json:"envelope"`
	Critical bool   `json:"critical"`
}

type manifest struct {
	Checks []check `json:"checks"`
}

type result struct {
	Check    check
	Status   int
	Pass     bool
	Error    error
	Duration time.Duration
}

func main() {
	var (
		base         string
		manifestPath string
		timeout      time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&manifestPath, "manifest", filepath.Join("scripts", "smoke", "checks.json"), "Path to JSON checks file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	checks, err := loadChecks(manifestPath)
	if err != nil {
		log.Fatalf("failed to load checks: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		results  []result
		breaking int
		soft     int
	)

	for _, chk := range checks {
		res := runCheck(client, base, chk)
		if !res.Pass {
			if chk.Critical {
				breaking++
			} else {
				soft++
			}
		}
		results = append(results, res)
	}

	printReport(results)

	fmt.Printf("Critical failures: %d, Soft failures: %d\n", breaking, soft)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadChecks(path string) ([]check, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if len(m.Checks) == 0 {
		return nil, fmt.Errorf("no checks defined in %s", path)
	}
	return m.Checks, nil
}

func runCheck(client *http.Client, base string, chk check) result {
	res := result{Check: chk}

	method := strings.ToUpper(strings.TrimSpace(chk.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := chk.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	url := strings.TrimRight(base, "/") + path

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		res.Error = err
		return res
	}

	start := time.Now()
	resp, err := client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = err
		return res
	}
	defer resp.Body.Close()

	res.Status = resp.StatusCode

	expect := chk.Expect
	if expect == 0 {
		expect = http.StatusOK
	}
	if res.Status != expect {
		res.Error = fmt.Errorf("expected status %d, got %d", expect, res.Status)
		return res
	}

	if chk.Envelope {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			res.Error = fmt.Errorf("read body: %w", err)
			return res
		}
		if err := validateEnvelope(body); err != nil {
			res.Error = err
			return res
		}
	}

	res.Pass = true
	return res
}

// validateEnvelope checks that a response parses as the standard envelope
// and that a 2xx body carries data rather than an error object.
func validateEnvelope(body []byte) error {
	var envelope struct {
		Data  json.RawMessage `json:"data"`
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("body is not an envelope: %w", err)
	}
	if len(envelope.Error) > 0 && string(envelope.Error) != "null" {
		return fmt.Errorf("envelope carries an error: %s", envelope.Error)
	}
	return nil
}

func printReport(results []result) {
	fmt.Println("API Smoke Report")
	fmt.Println("=================")
	for _, res := range results {
		status := "OK"
		if !res.Pass {
			status = "FAIL"
		}
		fmt.Printf("[%s] %s %s\n", status, res.Check.Method, res.Check.Path)
		fmt.Printf("  Status: %d (%s)\n", res.Status, res.Duration)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
		}
	}
}
