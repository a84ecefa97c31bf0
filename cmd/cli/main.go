package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"
)

type status struct {
	Title       string `json:"title"`
	LastUpdate  int64  `json:"last_update"`
	OverallUp   int    `json:"overall_up"`
	OverallDown int    `json:"overall_down"`
	Targets     []struct {
		ID            string   `json:"id"`
		Name          string   `json:"name"`
		State         string   `json:"state"`
		UptimePercent *float64 `json:"uptime_percent"`
		Incidents     []struct {
			Start []int64  `json:"start"`
			End   *int64   `json:"end"`
			Error []string `json:"error"`
		} `json:"incidents"`
		Latency []struct {
			Ping float64 `json:"ping"`
		} `json:"latency"`
	} `json:"targets"`
}

func main() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:8080"
	}
	key := flag.String("key", os.Getenv("API_KEY"), "API key")
	flag.Parse()

	req, err := http.NewRequest(http.MethodGet, api+"/api/status", nil)
	if err != nil {
		fmt.Println("Invalid API_BASE:", err)
		os.Exit(1)
	}
	if *key != "" {
		req.Header.Set("X-API-Key", *key)
	}
	resp, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
	if err != nil {
		fmt.Println("Error contacting API:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fmt.Println("API returned status:", resp.Status)
		os.Exit(1)
	}

	var s status
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		fmt.Println("Bad response:", err)
		os.Exit(1)
	}

	fmt.Printf("%s: %d up, %d down (updated %s)\n\n", s.Title, s.OverallUp, s.OverallDown,
		time.Unix(s.LastUpdate, 0).Format(time.RFC3339))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATE\tUPTIME\tLAST PING\tLAST ERROR")
	for _, t := range s.Targets {
		uptime := "-"
		if t.UptimePercent != nil {
			uptime = fmt.Sprintf("%.2f%%", *t.UptimePercent)
		}
		ping := "-"
		if n := len(t.Latency); n > 0 {
			ping = fmt.Sprintf("%.0f ms", t.Latency[n-1].Ping)
		}
		lastErr := ""
		if n := len(t.Incidents); n > 0 && t.Incidents[n-1].End == nil {
			if errs := t.Incidents[n-1].Error; len(errs) > 0 {
				lastErr = errs[len(errs)-1]
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Name, t.State, uptime, ping, lastErr)
	}
	_ = w.Flush()
}
