//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/rakbuku/apiserver/config"
	"github.com/rakbuku/apiserver/internal/db"
	"github.com/rakbuku/apiserver/internal/server"
)

const serverPort = 13000

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	setTestEnv()

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := recreateSchema(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown()
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestBookReviewFlow(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)

	status, _ := postJSON(t, baseURL+"/api/auth/register", map[string]string{
		"email":    "a@x.com",
		"name":     "A",
		"password": "p",
	}, "")
	if status != http.StatusCreated {
		t.Fatalf("register status %d", status)
	}

	// Duplicate registration must conflict without creating a second row.
	status, body := postJSON(t, baseURL+"/api/auth/register", map[string]string{
		"email":    "a@x.com",
		"name":     "A",
		"password": "p",
	}, "")
	if status != http.StatusBadRequest {
		t.Fatalf("duplicate register status %d: %s", status, body)
	}

	status, body = postJSON(t, baseURL+"/api/auth/login", map[string]string{
		"email":    "a@x.com",
		"password": "p",
	}, "")
	if status != http.StatusOK {
		t.Fatalf("login status %d: %s", status, body)
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(body), &login); err != nil || login.Token == "" {
		t.Fatalf("missing token in login response: %s", body)
	}

	books := listBooks(t, baseURL)
	if len(books) != 0 {
		t.Fatalf("expected empty catalog, got %d books", len(books))
	}

	status, body = postJSON(t, baseURL+"/api/books", map[string]string{
		"title":  "T",
		"author": "Au",
	}, login.Token)
	if status != http.StatusCreated {
		t.Fatalf("create book status %d: %s", status, body)
	}
	var created struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal([]byte(body), &created); err != nil || created.ID == 0 {
		t.Fatalf("missing id in created book: %s", body)
	}

	status, body = postJSON(t, baseURL+"/api/reviews", map[string]any{
		"book_id": created.ID,
		"rating":  5,
		"comment": "great",
	}, login.Token)
	if status != http.StatusCreated {
		t.Fatalf("create review status %d: %s", status, body)
	}

	books = listBooks(t, baseURL)
	if len(books) != 1 {
		t.Fatalf("expected one book, got %d", len(books))
	}
	if books[0].AverageRating != "5.0" {
		t.Fatalf("expected average_rating 5.0, got %q", books[0].AverageRating)
	}
	if books[0].ReviewCount != 1 {
		t.Fatalf("expected review_count 1, got %d", books[0].ReviewCount)
	}

	rows := getBookDetail(t, baseURL, created.ID)
	if len(rows) != 1 {
		t.Fatalf("expected one detail row, got %d", len(rows))
	}
	if rows[0]["judul_buku"] != "T" || rows[0]["nama_pemberi_review"] != "A" {
		t.Fatalf("unexpected detail row: %v", rows[0])
	}

	status, body = getRaw(t, baseURL+fmt.Sprintf("/api/books/%d", created.ID+1000))
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown book, got %d: %s", status, body)
	}
}

type bookSummary struct {
	ID            int    `json:"id"`
	AverageRating string `json:"average_rating"`
	ReviewCount   int    `json:"review_count"`
}

func listBooks(t *testing.T, baseURL string) []bookSummary {
	t.Helper()

	status, body := getRaw(t, baseURL+"/api/books")
	if status != http.StatusOK {
		t.Fatalf("list books status %d: %s", status, body)
	}
	var books []bookSummary
	if err := json.Unmarshal([]byte(body), &books); err != nil {
		t.Fatalf("decode book list: %v", err)
	}
	return books
}

func getBookDetail(t *testing.T, baseURL string, id int) []map[string]any {
	t.Helper()

	status, body := getRaw(t, baseURL+fmt.Sprintf("/api/books/%d", id))
	if status != http.StatusOK {
		t.Fatalf("book detail status %d: %s", status, body)
	}
	var rows []map[string]any
	if err := json.Unmarshal([]byte(body), &rows); err != nil {
		t.Fatalf("decode book detail: %v", err)
	}
	return rows
}

func postJSON(t *testing.T, url string, payload any, token string) (int, string) {
	t.Helper()

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request %s: %v", url, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, strings.TrimSpace(string(body))
}

func getRaw(t *testing.T, url string) (int, string) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("request %s: %v", url, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, strings.TrimSpace(string(body))
}

func setTestEnv() {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "bookshelf")
	_ = os.Setenv("DB_PASSWORD", "bookshelf")
	_ = os.Setenv("DB_NAME", "bookshelf")
	_ = os.Setenv("DB_USE_SSL", "false")
}

func waitForPostgres(ctx context.Context) error {
	cfg := config.LoadConfig()
	conn, err := sql.Open("postgres", db.DSN(cfg))
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

// recreateSchema drops everything and re-applies all migrations so each
// run starts from an empty catalog.
func recreateSchema(root string) error {
	cfg := config.LoadConfig()
	migrationsPath := filepath.Join(root, "internal", "db", "migrations")
	migrationsURL := "file://" + migrationsPath

	migrator, err := migrate.New(migrationsURL, db.DSN(cfg))
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Drop(); err != nil {
		return err
	}
	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func startServer() (*server.Server, error) {
	cfg := config.LoadConfig()
	srv, err := server.New(context.Background(), cfg, nil)
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
