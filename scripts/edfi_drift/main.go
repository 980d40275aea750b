// Command edfi_drift compares local record counts against the Ed-Fi ODS.
//
// It counts active rows in the local database and asks the ODS for its
// Total-Count per resource, then prints a drift report. A non-zero exit
// code means at least one resource has drifted, which usually indicates
// a sync that should be re-run.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edustack/sis-api/internal/edfi"
	"github.com/edustack/sis-api/pkg/config"
	"github.com/edustack/sis-api/pkg/database"
)

type resource struct {
	Name       string
	ODSPath    string
	CountQuery string
}

var resources = []resource{
	{"schools", "/ed-fi/schools", "SELECT COUNT(*) FROM schools WHERE active = true"},
	{"students", "/ed-fi/students", "SELECT COUNT(*) FROM students WHERE active = true"},
	{"courses", "/ed-fi/courses", "SELECT COUNT(*) FROM courses WHERE active = true"},
	{"sections", "/ed-fi/sections", "SELECT COUNT(*) FROM course_sections"},
}

type drift struct {
	Resource string
	Local    int
	Remote   int
	Err      error
}

func main() {
	var timeout time.Duration
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	client := &http.Client{Timeout: timeout}
	tokens := edfi.NewTokenSource(cfg.EdFi, client, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var drifted int
	results := make([]drift, 0, len(resources))
	for _, res := range resources {
		d := compare(ctx, db, client, tokens, cfg.EdFi.BaseURL, res)
		if d.Err != nil || d.Local != d.Remote {
			drifted++
		}
		results = append(results, d)
	}

	printReport(results)

	if drifted > 0 {
		os.Exit(1)
	}
}

func compare(ctx context.Context, db *sqlx.DB, client *http.Client, tokens *edfi.TokenSource, baseURL string, res resource) drift {
	d := drift{Resource: res.Name}

	if err := db.GetContext(ctx, &d.Local, res.CountQuery); err != nil {
		d.Err = fmt.Errorf("local count: %w", err)
		return d
	}

	remote, err := remoteCount(ctx, client, tokens, baseURL, res.ODSPath)
	if err != nil {
		d.Err = fmt.Errorf("ods count: %w", err)
		return d
	}
	d.Remote = remote
	return d
}

// remoteCount relies on the ODS Total-Count response header, which the
// ODS returns when totalCount=true is requested.
func remoteCount(ctx context.Context, client *http.Client, tokens *edfi.TokenSource, baseURL, path string) (int, error) {
	token, err := tokens.Token(ctx)
	if err != nil {
		return 0, err
	}

	query := url.Values{}
	query.Set("totalCount", "true")
	query.Set("limit", "0")
	target := strings.TrimRight(baseURL, "/") + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	header := resp.Header.Get("Total-Count")
	if header == "" {
		return 0, fmt.Errorf("missing Total-Count header")
	}
	return strconv.Atoi(header)
}

func printReport(results []drift) {
	fmt.Println("Ed-Fi Drift Report")
	fmt.Println("==================")
	for _, d := range results {
		status := "OK"
		if d.Err != nil {
			status = "ERROR"
		} else if d.Local != d.Remote {
			status = "DRIFT"
		}
		fmt.Printf("[%s] %s\n", status, d.Resource)
		if d.Err != nil {
			fmt.Printf("  Error: %v\n", d.Err)
			continue
		}
		fmt.Printf("  Local: %d | ODS: %d\n", d.Local, d.Remote)
	}
}
