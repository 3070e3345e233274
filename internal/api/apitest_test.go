package api_test

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"coinledger/internal/api"
	"coinledger/internal/auth"
	"coinledger/internal/store"
)

type testEnv struct {
	pool       *pgxpool.Pool
	server     *httptest.Server
	client     *http.Client
	authToken  string
	adminToken string
	userToken  string
}

func setupTest(t *testing.T) *testEnv {
	return setupTestWithReward(t, 0)
}

func setupTestWithReward(t *testing.T, rewardCoins int64) *testEnv {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("db connection: %v", err)
	}

	applySchema(t, pool)
	resetDB(t, pool)

	signer, err := auth.NewSigner("test-admin-secret")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	adminToken, err := signer.Sign(1, auth.RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("sign admin token: %v", err)
	}
	userToken, err := signer.Sign(2, "learner", time.Hour)
	if err != nil {
		t.Fatalf("sign user token: %v", err)
	}

	authToken := "test-token"
	srv := api.NewServer(store.New(pool, rewardCoins), authToken, signer, log.New(io.Discard, "", 0))
	ts := httptest.NewServer(srv.Routes())

	return &testEnv{
		pool:       pool,
		server:     ts,
		client:     &http.Client{Timeout: 3 * time.Second},
		authToken:  authToken,
		adminToken: adminToken,
		userToken:  userToken,
	}
}

func (e *testEnv) close() {
	e.server.Close()
	e.pool.Close()
}

func (e *testEnv) doRequest(t *testing.T, method, path, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.authToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func (e *testEnv) doAdminRequest(t *testing.T, method, path, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.authToken)
	req.Header.Set("X-Admin-Token", e.adminToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func seedUser(t *testing.T, pool *pgxpool.Pool, id int64, coins int64) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := pool.Exec(ctx, "INSERT INTO users (id) VALUES ($1)", id); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if _, err := pool.Exec(ctx, "INSERT INTO user_balances (user_id, coins) VALUES ($1, $2)", id, coins); err != nil {
		t.Fatalf("seed balance: %v", err)
	}
}

func seedCourse(t *testing.T, pool *pgxpool.Pool, id int64, priceCoins int64) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := pool.Exec(ctx, "INSERT INTO courses (id, title, price_coins) VALUES ($1, $2, $3)", id, "course", priceCoins)
	if err != nil {
		t.Fatalf("seed course: %v", err)
	}
}

func getBalance(t *testing.T, pool *pgxpool.Pool, id int64) int64 {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var coins int64
	err := pool.QueryRow(ctx, "SELECT coins FROM user_balances WHERE user_id = $1", id).Scan(&coins)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	return coins
}

func getTransactionSummary(t *testing.T, pool *pgxpool.Pool, userID int64) (int, int64) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	var sum int64
	err := pool.QueryRow(ctx, "SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM transactions WHERE user_id = $1", userID).Scan(&count, &sum)
	if err != nil {
		t.Fatalf("get transaction summary: %v", err)
	}
	return count, sum
}

// checkReconciled asserts the ledger invariant: the transaction log sums
// to the stored balance. Seeded opening coins predate the log, so they
// are passed in explicitly.
func checkReconciled(t *testing.T, pool *pgxpool.Pool, userID, openingCoins int64) {
	t.Helper()

	balance := getBalance(t, pool, userID)
	_, sum := getTransactionSummary(t, pool, userID)
	if openingCoins+sum != balance {
		t.Fatalf("ledger out of balance: opening %d + transactions %d != balance %d", openingCoins, sum, balance)
	}
}

func getWithdrawalCount(t *testing.T, pool *pgxpool.Pool, userID int64) int {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM withdrawals WHERE user_id = $1", userID).Scan(&count)
	if err != nil {
		t.Fatalf("get withdrawal count: %v", err)
	}
	return count
}

func getEnrollmentCount(t *testing.T, pool *pgxpool.Pool, userID int64) int {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM enrollments WHERE user_id = $1", userID).Scan(&count)
	if err != nil {
		t.Fatalf("get enrollment count: %v", err)
	}
	return count
}

func getCompletionCount(t *testing.T, pool *pgxpool.Pool, userID int64) int {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM course_completions WHERE user_id = $1", userID).Scan(&count)
	if err != nil {
		t.Fatalf("get completion count: %v", err)
	}
	return count
}

func applySchema(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	schema := loadSchema(t)
	statements := strings.Split(schema, ";")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, stmt := range statements {
		s := strings.TrimSpace(stmt)
		if s == "" {
			continue
		}
		if _, err := pool.Exec(ctx, s); err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
}

func resetDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := pool.Exec(ctx, "TRUNCATE course_completions, withdrawals, enrollments, transactions, user_balances, courses, users RESTART IDENTITY"); err != nil {
		t.Fatalf("reset db: %v", err)
	}
}

func loadSchema(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	dir := wd
	for i := 0; i < 6; i++ {
		path := filepath.Join(dir, "schema.sql")
		if _, err := os.Stat(path); err == nil {
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read schema: %v", err)
			}
			return string(data)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	t.Fatalf("schema.sql not found from %s", wd)
	return ""
}
