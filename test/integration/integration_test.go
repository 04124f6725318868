// Package integration exercises a running batch source over HTTP. Point
// BASE_URL at the server; the tests skip when it is unset.
package integration

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

func baseURL() string {
	return os.Getenv("BASE_URL")
}

func waitReady(t *testing.T) {
	t.Helper()
	if baseURL() == "" {
		t.Skip("BASE_URL not set")
	}
	url := fmt.Sprintf("%s/healthz", baseURL())
	deadline := time.Now().Add(20 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("service not ready")
}

type errBody struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

func listIDs(t *testing.T) []string {
	t.Helper()
	resp, err := http.Get(baseURL() + "/batches/batch-list")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	rows, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		t.Fatalf("batch list is not csv: %v", err)
	}
	if len(rows) == 0 || !strings.EqualFold(strings.TrimSpace(rows[0][0]), "batch_id") {
		t.Fatalf("expected BATCH_ID header, got %v", rows)
	}
	var ids []string
	for _, r := range rows[1:] {
		ids = append(ids, strings.TrimSpace(r[0]))
	}
	return ids
}

func TestIntegration_ListThenFetch(t *testing.T) {
	waitReady(t)
	ids := listIDs(t)
	if len(ids) == 0 {
		t.Skip("catalog is empty")
	}
	for _, path := range []string{"/batch-data/", "/api/batch_data/"} {
		resp, err := http.Get(baseURL() + path + ids[0])
		if err != nil {
			t.Fatal(err)
		}
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		// listed batches may legitimately lack data
		if resp.StatusCode == http.StatusNotFound {
			continue
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, resp.StatusCode)
		}
		if !strings.Contains(strings.ToUpper(string(body)), "ORDER_ID") {
			t.Fatalf("%s: expected ORDER_ID header in %q", path, body)
		}
	}
}

func TestIntegration_UnknownBatch_NotFoundJSON(t *testing.T) {
	waitReady(t)
	resp, err := http.Get(baseURL() + "/batch-data/987654321987")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	var e errBody
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		t.Fatal(err)
	}
	if e.Error != "not_found" {
		t.Fatalf("unexpected error %+v", e)
	}
}

func TestIntegration_InvalidBatchID(t *testing.T) {
	waitReady(t)
	resp, err := http.Get(baseURL() + "/batch-data/not-a-number")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestIntegration_MethodNotAllowed(t *testing.T) {
	waitReady(t)
	resp, err := http.Post(baseURL()+"/batches/batch-list", "text/csv", strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func TestIntegration_OpenAPIServed(t *testing.T) {
	waitReady(t)
	resp, err := http.Get(baseURL() + "/openapi.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestIntegration_DocsServed(t *testing.T) {
	waitReady(t)
	resp, err := http.Get(baseURL() + "/docs")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	buf := make([]byte, 1024)
	n, _ := io.ReadFull(resp.Body, buf)
	if !strings.Contains(string(buf[:n]), "swagger-ui") {
		t.Fatalf("expected swagger-ui in docs page")
	}
}

func TestIntegration_MetricsExposed(t *testing.T) {
	waitReady(t)
	_ = listIDs(t)
	resp, err := http.Get(baseURL() + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `batch_source_requests_total{route="batch_list"`) {
		t.Fatalf("expected batch_list request counter")
	}
}
