package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lockstep/internal/api"
)

func hammerCmd() *cli.Command {
	var (
		url         string
		tokensArg   string
		steps       int64
		requests    int64
		concurrency int64
	)

	return &cli.Command{
		Name:  "hammer",
		Usage: "Fire identical completion requests at a server and count unique outputs",
		Flags: append(loggingFlags(),
			&cli.StringFlag{
				Name:        "url",
				Usage:       "server base URL",
				Value:       "http://127.0.0.1:8080",
				Destination: &url,
			},
			&cli.StringFlag{
				Name:        "tokens",
				Usage:       "comma-separated prompt token ids",
				Value:       "1,7,42,99,3",
				Destination: &tokensArg,
			},
			&cli.Int64Flag{
				Name:        "steps",
				Usage:       "tokens to generate per request",
				Value:       64,
				Destination: &steps,
			},
			&cli.Int64Flag{
				Name:        "requests",
				Usage:       "total requests to send",
				Value:       100,
				Destination: &requests,
			},
			&cli.Int64Flag{
				Name:        "concurrency",
				Usage:       "concurrent in-flight requests",
				Value:       10,
				Destination: &concurrency,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, log := loggerContext(ctx)

			prompt, err := parseTokens(tokensArg)
			if err != nil {
				return err
			}
			if requests < 1 || concurrency < 1 {
				return fmt.Errorf("hammer: requests and concurrency must be positive")
			}

			client := &http.Client{Timeout: 2 * time.Minute}
			if err := checkHealth(ctx, client, url); err != nil {
				return err
			}

			body, err := json.Marshal(api.CompletionRequest{Tokens: prompt, Steps: int(steps)})
			if err != nil {
				return err
			}

			log.Info("hammering", "url", url, "requests", requests, "concurrency", concurrency)

			outs := make([]string, requests)
			errs := make([]error, requests)
			sem := make(chan struct{}, concurrency)
			var wg sync.WaitGroup
			for i := int64(0); i < requests; i++ {
				wg.Add(1)
				sem <- struct{}{}
				go func(i int64) {
					defer wg.Done()
					defer func() { <-sem }()
					outs[i], errs[i] = sendCompletion(ctx, client, url, body)
				}(i)
			}
			wg.Wait()

			unique := make(map[string]int)
			var failed int
			for i := range outs {
				if errs[i] != nil {
					failed++
					continue
				}
				unique[outs[i]]++
			}

			fmt.Printf("total=%d failed=%d unique=%d\n", requests, failed, len(unique))
			if failed > 0 {
				for i := range errs {
					if errs[i] != nil {
						return fmt.Errorf("hammer: %d requests failed, first: %w", failed, errs[i])
					}
				}
			}
			if len(unique) > 1 {
				return fmt.Errorf("hammer: outputs are nondeterministic (%d unique)", len(unique))
			}
			return nil
		},
	}
}

func parseTokens(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("hammer: bad token %q: %w", p, err)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("hammer: empty prompt")
	}
	return out, nil
}

func checkHealth(ctx context.Context, client *http.Client, base string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("hammer: server not responding: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hammer: health check returned %d", resp.StatusCode)
	}
	return nil
}

func sendCompletion(ctx context.Context, client *http.Client, base string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	var out api.CompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	ids := make([]string, len(out.Tokens))
	for i, t := range out.Tokens {
		ids[i] = strconv.Itoa(t)
	}
	return strings.Join(ids, " "), nil
}
