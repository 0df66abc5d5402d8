package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
)

const batchSize = 100

type resolveRequest struct {
	UUIDs []string `json:"uuids"`
	Join  bool     `json:"join"`
}

func resolveBatch(ctx context.Context, httpClient *http.Client, baseURL string, uuids []string) ([]byte, error) {
	body, err := json.Marshal(resolveRequest{UUIDs: uuids, Join: true})
	if err != nil {
		return nil, fmt.Errorf("Marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/profiles/resolve", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("Constructing request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Making request: %w", err)
	}

	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ReadAll: %w", err)
	}

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("Server returned non-200 status code: %d - %s", resp.StatusCode, string(data))
	}

	return data, nil
}

func main() {
	baseURL := os.Getenv("BEACON_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8123"
	}

	uuids := os.Args[1:]
	if len(uuids) == 0 {
		log.Fatal("No uuids provided")
	}

	httpClient := &http.Client{
		Timeout: 60 * time.Second,
	}

	results := make([][]byte, (len(uuids)+batchSize-1)/batchSize)

	group, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < len(uuids); i += batchSize {
		batchIndex := i / batchSize
		batch := uuids[i:min(i+batchSize, len(uuids))]
		group.Go(func() error {
			data, err := resolveBatch(ctx, httpClient, baseURL, batch)
			if err != nil {
				return err
			}
			results[batchIndex] = data
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		log.Fatalf("Failed resolving profiles: %v", err)
	}

	for _, data := range results {
		fmt.Println(string(data))
	}
}
