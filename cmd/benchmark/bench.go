package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"

	"github.com/aetherblog/ai-service/internal/cli"
)

// Load harness: starts a stub OpenAI-wire upstream, builds and runs the
// service against it, then drives the summary endpoint with vegeta.

const (
	mockPort = 9091
	appPort  = 8081
)

var (
	streamChunks = [][]byte{
		[]byte("data: {\"choices\":[{\"delta\":{\"content\":\"Bench\"}}]}\n\n"),
		[]byte("data: {\"choices\":[{\"delta\":{\"content\":\"mark\"}}]}\n\n"),
		[]byte("data: {\"choices\":[{\"delta\":{\"content\":\" response\"}}]}\n\n"),
		[]byte("data: [DONE]\n\n"),
	}
	unaryResp = []byte(`{"choices":[{"message":{"content":"Benchmark response"}}],"usage":{"prompt_tokens":12,"completion_tokens":3}}`)
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "Duration of the test")
	rate := flag.Int("rate", 50, "Requests per second")
	stream := flag.Bool("stream", false, "Attack the streaming endpoint")
	flag.Parse()

	go startMockUpstream()

	fmt.Println("Building application...")
	buildCmd := exec.Command("go", "build", "-o", "bin/server", "./cmd/server")
	buildCmd.Stdout = os.Stdout
	buildCmd.Stderr = os.Stderr
	if err := buildCmd.Run(); err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	dbFile := fmt.Sprintf("bench-%d.db", time.Now().Unix())
	defer os.Remove(dbFile)

	fmt.Println("Starting application...")
	app := exec.Command("./bin/server")
	app.Env = append(os.Environ(),
		fmt.Sprintf("AI_PORT=%d", appPort),
		fmt.Sprintf("AI_DB_DSN=file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", dbFile),
		"JWT_SECRET=bench-secret",
		"OPENAI_API_KEY=sk-bench",
		fmt.Sprintf("OPENAI_BASE_URL=http://localhost:%d/v1", mockPort),
		"LOG_LEVEL=error",
	)

	logFile, _ := os.Create("bench_server.log")
	defer logFile.Close()
	app.Stdout = logFile
	app.Stderr = logFile

	if err := app.Start(); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}
	defer func() {
		if app.Process != nil {
			_ = app.Process.Kill()
		}
	}()

	waitForApp(fmt.Sprintf("http://localhost:%d/health", appPort))

	path := "/api/v1/ai/summary"
	if *stream {
		path = "/api/v1/ai/summary/stream"
	}

	body, _ := json.Marshal(map[string]interface{}{
		"content":   "Benchmarking is the practice of measuring a system under a controlled, repeatable load so regressions show up as numbers instead of incidents.",
		"maxLength": 120,
	})

	targeter := vegeta.NewStaticTargeter(vegeta.Target{
		Method: "POST",
		URL:    fmt.Sprintf("http://localhost:%d%s", appPort, path),
		Body:   body,
		Header: http.Header{"Content-Type": []string{"application/json"}},
	})

	attacker := vegeta.NewAttacker(vegeta.Timeout(30 * time.Second))
	pacer := vegeta.Rate{Freq: *rate, Per: time.Second}

	fmt.Printf("Attacking %s at %d rps for %s...\n", path, *rate, *duration)
	var m vegeta.Metrics
	for res := range attacker.Attack(targeter, pacer, *duration, "ai-summary") {
		m.Add(res)
	}
	m.Close()

	fmt.Println(cli.Style("\nResults", cli.Bold))
	fmt.Println(cli.PrettyJSON(map[string]interface{}{
		"requests": m.Requests,
		"success":  fmt.Sprintf("%.2f%%", m.Success*100),
		"latency_ms": map[string]interface{}{
			"mean": m.Latencies.Mean.Milliseconds(),
			"p95":  m.Latencies.P95.Milliseconds(),
			"p99":  m.Latencies.P99.Milliseconds(),
			"max":  m.Latencies.Max.Milliseconds(),
		},
	}))
	if len(m.Errors) > 0 {
		fmt.Printf("%s %v\n", cli.Fail("errors:"), m.Errors)
	}
}

func startMockUpstream() {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Stream bool `json:"stream"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		if req.Stream {
			w.Header().Set("Content-Type", "text/event-stream")
			flusher := w.(http.Flusher)
			for _, chunk := range streamChunks {
				_, _ = w.Write(chunk)
				flusher.Flush()
				time.Sleep(5 * time.Millisecond)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(unaryResp)
	})

	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", mockPort), mux))
}

func waitForApp(url string) {
	for i := 0; i < 50; i++ {
		resp, err := http.Get(url)
		if err == nil && resp.StatusCode == http.StatusOK {
			_ = resp.Body.Close()
			fmt.Println("Application ready.")
			return
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		time.Sleep(200 * time.Millisecond)
	}
	log.Fatal("Application failed to become ready")
}
