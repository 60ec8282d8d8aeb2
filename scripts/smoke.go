// smoke is a tool to exercise a running cortex-router instance end to end:
// health, one request per operation, and the provider status endpoint.
//
// Usage:
//
//	go run smoke.go -router http://localhost:8090
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

func main() {
	var (
		routerURL = flag.String("router", "http://localhost:8090", "Router URL")
		intent    = flag.String("intent", "", "Routing intent (strong, local, cheap)")
	)
	flag.Parse()

	client := &http.Client{Timeout: 5 * time.Minute}

	fmt.Println(colorCyan + "╔════════════════════════════════════════════════════════════════╗" + colorReset)
	fmt.Println(colorCyan + "║         CORTEX ROUTER SMOKE TEST                               ║" + colorReset)
	fmt.Println(colorCyan + "╚════════════════════════════════════════════════════════════════╝" + colorReset)
	fmt.Println()

	// PHASE 1: Health
	fmt.Println(colorBlue + "━━━ PHASE 1: Health ━━━" + colorReset)
	if err := checkHealth(client, *routerURL); err != nil {
		fmt.Printf(colorRed+"  ✗ Router is not healthy: %v\n"+colorReset, err)
		os.Exit(1)
	}
	fmt.Println(colorGreen + "  ✓ Router is healthy" + colorReset)
	fmt.Println()

	// PHASE 2: One request per operation
	fmt.Println(colorBlue + "━━━ PHASE 2: Operations ━━━" + colorReset)

	operations := []struct {
		name string
		path string
		body map[string]any
	}{
		{
			name: "analyze",
			path: "/v1/analyze",
			body: map[string]any{
				"codebase": map[string]string{"main.go": "package main\n\nfunc main() {}\n"},
				"query":    "What does this program do?",
				"intent":   *intent,
			},
		},
		{
			name: "brainstorm",
			path: "/v1/brainstorm",
			body: map[string]any{
				"topic":       "reducing API latency",
				"constraints": []string{"no additional infrastructure"},
				"intent":      *intent,
			},
		},
		{
			name: "expand",
			path: "/v1/expand",
			body: map[string]any{
				"idea":    "response caching at the edge",
				"context": "a read-heavy public API",
				"intent":  *intent,
			},
		},
		{
			name: "connect",
			path: "/v1/connect",
			body: map[string]any{
				"idea_a":       "response caching",
				"idea_b":       "request coalescing",
				"relationship": "complementary",
				"intent":       *intent,
			},
		},
	}

	failures := 0
	for _, op := range operations {
		start := time.Now()
		status, err := postJSON(client, *routerURL+op.path, op.body)
		elapsed := time.Since(start).Round(time.Millisecond)

		switch {
		case err != nil:
			fmt.Printf(colorRed+"  ✗ %-10s ERROR - %v\n"+colorReset, op.name, err)
			failures++
		case status == http.StatusOK:
			fmt.Printf(colorGreen+"  ✓ %-10s %d in %s\n"+colorReset, op.name, status, elapsed)
		case status == http.StatusBadGateway:
			fmt.Printf(colorYellow+"  ⚠ %-10s %d - all providers failed (check API keys)\n"+colorReset, op.name, status)
			failures++
		default:
			fmt.Printf(colorRed+"  ✗ %-10s unexpected status %d\n"+colorReset, op.name, status)
			failures++
		}
	}
	fmt.Println()

	// PHASE 3: Provider status
	fmt.Println(colorBlue + "━━━ PHASE 3: Provider Status ━━━" + colorReset)
	if err := printStatus(client, *routerURL+"/v1/providers/status"); err != nil {
		fmt.Printf(colorYellow+"  Could not fetch provider status: %v\n"+colorReset, err)
	}
	fmt.Println()

	if failures > 0 {
		fmt.Printf(colorYellow+"⚠ Done with %d failed operation(s)\n"+colorReset, failures)
		os.Exit(1)
	}
	fmt.Println(colorGreen + "✓ All operations succeeded" + colorReset)
}

func checkHealth(client *http.Client, routerURL string) error {
	res, err := client.Get(routerURL + "/health")
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", res.StatusCode)
	}
	return nil
}

func postJSON(client *http.Client, url string, body map[string]any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}

	res, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	return res.StatusCode, nil
}

func printStatus(client *http.Client, url string) error {
	res, err := client.Get(url)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	var decoded struct {
		Providers map[string]struct {
			Lane         string  `json:"lane"`
			CircuitState string  `json:"circuit_state"`
			FailureRate  float64 `json:"failure_rate"`
		} `json:"providers"`
	}
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return err
	}

	for name, st := range decoded.Providers {
		color := colorGreen
		if st.CircuitState != "CLOSED" {
			color = colorYellow
		}
		fmt.Printf(color+"  %-8s lane=%-5s circuit=%-9s failure_rate=%.2f\n"+colorReset,
			name, st.Lane, st.CircuitState, st.FailureRate)
	}

	return nil
}
