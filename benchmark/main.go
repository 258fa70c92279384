// Package main provides a performance benchmarking tool for the metplus CLI.
// It generates METplus configurations of increasing size, runs each command
// several times, treats the first successful run as cold and averages the
// rest as warm, then writes a CSV for performance analysis.
//
// Prerequisites:
// - metplus binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory where the generated configurations are written
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (no-history average, cold run and average of warm runs).
type BenchmarkResult struct {
	Scenario      string
	Command       string
	NoHistoryTime string
	ColdTime      string
	WarmTime      string
}

// Scenario describes one generated configuration.
type Scenario struct {
	Name      string
	Days      int
	Increment string
	LeadSeq   string
	VarCount  int
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir       string
	Timeout       time.Duration
	NoHistoryRuns int
	HistoryRuns   int
	Scenarios     []Scenario
}

func main() {
	// Parse command line arguments
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}
	workDir := os.Args[1]

	config := BenchmarkConfig{
		WorkDir:       workDir,
		Timeout:       5 * time.Minute,
		NoHistoryRuns: 3,
		HistoryRuns:   4,
		Scenarios: []Scenario{
			{Name: "day", Days: 1, Increment: "6H", LeadSeq: "0, 6, 12", VarCount: 2},
			{Name: "week", Days: 7, Increment: "6H", LeadSeq: "begin_end_incr(0,48,6)", VarCount: 4},
			{Name: "month", Days: 30, Increment: "3H", LeadSeq: "begin_end_incr(0,120,3)", VarCount: 8},
			{Name: "season", Days: 90, Increment: "1H", LeadSeq: "begin_end_incr(0,240,1)", VarCount: 12},
		},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	// Clear the history using metplus history clear
	fmt.Printf("Clearing history...\n")
	clearCmd := exec.Command("metplus", "history", "clear")
	if output, err := clearCmd.CombinedOutput(); err != nil {
		fmt.Printf("Warning: failed to clear history: %v\nOutput: %s\n", err, string(output))
	} else {
		fmt.Printf("History cleared successfully\n")
	}

	results, err := runBenchmarks(config)
	if err != nil {
		fmt.Printf("Benchmark failed: %v\n", err)
		os.Exit(1)
	}

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the metplus binary and work dir exist
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("metplus"); err != nil {
		return fmt.Errorf("metplus binary not found in PATH")
	}
	if err := os.MkdirAll(config.WorkDir, 0o755); err != nil {
		return fmt.Errorf("cannot create work dir %s: %w", config.WorkDir, err)
	}
	return nil
}

// writeScenario renders the configuration of a scenario and returns its path
func writeScenario(dir string, s Scenario) (string, error) {
	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, s.Days)

	var b strings.Builder
	b.WriteString("[config]\n")
	b.WriteString("PROCESS_LIST = GridStat, PointStat\n")
	b.WriteString("LOOP_BY = INIT\n")
	b.WriteString("INIT_TIME_FMT = %Y%m%d%H\n")
	b.WriteString("INIT_BEG = 2024030100\n")
	fmt.Fprintf(&b, "INIT_END = %s\n", end.Format("2006010215"))
	fmt.Fprintf(&b, "INIT_INCREMENT = %s\n", s.Increment)
	fmt.Fprintf(&b, "LEAD_SEQ = %s\n", s.LeadSeq)
	for i := 1; i <= s.VarCount; i++ {
		fmt.Fprintf(&b, "BOTH_VAR%d_NAME = VAR%d_{lead?fmt=%%3H}\n", i, i)
		fmt.Fprintf(&b, "BOTH_VAR%d_LEVELS = P500, P850, Z2\n", i)
		fmt.Fprintf(&b, "BOTH_VAR%d_THRESH = gt0, ge10\n", i)
	}

	path := filepath.Join(dir, s.Name+".conf")
	return path, os.WriteFile(path, []byte(b.String()), 0o644)
}

// runBenchmarks executes all benchmark tests across configured scenarios
func runBenchmarks(config BenchmarkConfig) ([]BenchmarkResult, error) {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d scenarios, %v timeout, no-history: %d runs, history: %d runs\n",
		len(config.Scenarios), config.Timeout, config.NoHistoryRuns, config.HistoryRuns)

	for _, s := range config.Scenarios {
		fmt.Printf("Benchmarking %s\n", s.Name)

		confPath, err := writeScenario(config.WorkDir, s)
		if err != nil {
			return nil, fmt.Errorf("failed to write scenario %s: %w", s.Name, err)
		}

		results = append(results,
			runBenchmarkSuite(config, s.Name, "plan", "full plan", confPath),
			runBenchmarkSuite(config, s.Name, "fields", "field resolution", confPath),
			runBenchmarkSuite(config, s.Name, "check", "field validation", confPath),
		)
	}

	return results, nil
}

// runBenchmarkSuite runs both no-history and history benchmarks for a command
func runBenchmarkSuite(config BenchmarkConfig, scenario, command, description, confPath string) BenchmarkResult {
	fmt.Printf("Running %s on %s\n", description, scenario)

	// Helper to run a benchmark phase
	runPhase := func(historyBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, command, confPath, historyBackend, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avg := sum / float64(len(times))
			avgTime = fmt.Sprintf("%.3fs", avg)
		}
		return cold, avgTime
	}

	// Phase 1: No-history runs
	_, noHistoryAvg := runPhase("none", config.NoHistoryRuns, "No-history")

	// Phase 2: History runs; only plan records anything
	coldTime, warmAvg := runPhase("sqlite", config.HistoryRuns, "History")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-history average: %s, Cold time: %s, Warm average: %s\n", noHistoryAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Scenario:      scenario,
		Command:       command,
		NoHistoryTime: noHistoryAvg,
		ColdTime:      coldTimeStr,
		WarmTime:      warmAvg,
	}
}

// runBenchmark executes a metplus command multiple times with the specified history backend and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, command, confPath, historyBackend string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := []string{command, "-c", confPath, "--history-backend", historyBackend, "--output", "csv", "--log-level", "error"}

	var times []float64
	for run := 1; run <= numRuns; run++ {
		start := time.Now()

		cmd := exec.Command("metplus", args...)
		cmd.Dir = config.WorkDir

		done := make(chan bool)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.Output()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			// Timeout - don't add to times
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks that the command produced a CSV header row
func isSuccess(output []byte) bool {
	header, _, _ := strings.Cut(string(output), "\n")
	return strings.Contains(header, ",")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/metplus_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	if err := writer.Write([]string{"scenario", "cmd", "no_history_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	// Write results
	for _, result := range results {
		if err := writer.Write([]string{result.Scenario, result.Command, result.NoHistoryTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")

	printCommandSummary(results, "plan", "Plan:")
	printCommandSummary(results, "fields", "Fields:")
	printCommandSummary(results, "check", "Check:")

	fmt.Printf("Benchmark script completed successfully\n")
}

// printCommandSummary displays results for a specific command type
func printCommandSummary(results []BenchmarkResult, command, title string) {
	fmt.Printf("%s\n", title)
	for _, result := range results {
		if result.Command == command {
			fmt.Printf("  %-8s: No-history: %s, Cold: %s, Warm: %s\n", result.Scenario, result.NoHistoryTime, result.ColdTime, result.WarmTime)
		}
	}
}
