package api_test

import (
	"encoding/json"
	"net/http"
	"testing"
)

type completionResponse struct {
	UserID      int64  `json:"user_id"`
	CourseID    int64  `json:"course_id"`
	CompletedAt string `json:"completed_at"`
}

func TestCompleteCourse(t *testing.T) {
	env := setupTest(t)
	defer env.close()

	seedUser(t, env.pool, 1, 0)
	seedCourse(t, env.pool, 10, 400)

	resp := env.doRequest(t, http.MethodPost, "/v1/completions", `{"user_id":1,"course_id":10}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected %d, got %d", http.StatusCreated, resp.StatusCode)
	}

	var got completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.UserID != 1 || got.CourseID != 10 || got.CompletedAt == "" {
		t.Fatalf("unexpected completion: %+v", got)
	}

	if count := getCompletionCount(t, env.pool, 1); count != 1 {
		t.Fatalf("expected 1 completion, got %d", count)
	}
}

func TestCompleteCourseIdempotent(t *testing.T) {
	env := setupTest(t)
	defer env.close()

	seedUser(t, env.pool, 1, 0)
	seedCourse(t, env.pool, 10, 400)

	resp1 := env.doRequest(t, http.MethodPost, "/v1/completions", `{"user_id":1,"course_id":10}`)
	resp1.Body.Close()
	if resp1.StatusCode != http.StatusCreated {
		t.Fatalf("expected %d, got %d", http.StatusCreated, resp1.StatusCode)
	}

	var first completionResponse
	resp2 := env.doRequest(t, http.MethodPost, "/v1/completions", `{"user_id":1,"course_id":10}`)
	defer resp2.Body.Close()

	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("expected %d, got %d", http.StatusOK, resp2.StatusCode)
	}
	if err := json.NewDecoder(resp2.Body).Decode(&first); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if count := getCompletionCount(t, env.pool, 1); count != 1 {
		t.Fatalf("expected 1 completion, got %d", count)
	}
}

func TestCompleteCourseRewardIssuedOnce(t *testing.T) {
	env := setupTestWithReward(t, 50)
	defer env.close()

	seedUser(t, env.pool, 1, 0)
	seedCourse(t, env.pool, 10, 400)

	for i := 0; i < 3; i++ {
		resp := env.doRequest(t, http.MethodPost, "/v1/completions", `{"user_id":1,"course_id":10}`)
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
			t.Fatalf("attempt %d: unexpected status %d", i, resp.StatusCode)
		}
	}

	if count := getCompletionCount(t, env.pool, 1); count != 1 {
		t.Fatalf("expected 1 completion, got %d", count)
	}
	if balance := getBalance(t, env.pool, 1); balance != 50 {
		t.Fatalf("expected balance 50, got %d", balance)
	}

	// Exactly one reward transaction, regardless of replays.
	count, sum := getTransactionSummary(t, env.pool, 1)
	if count != 1 || sum != 50 {
		t.Fatalf("expected 1 transaction summing 50, got %d and %d", count, sum)
	}
	checkReconciled(t, env.pool, 1, 0)
}

func TestCompleteCourseZeroRewardAddsNoTransaction(t *testing.T) {
	env := setupTest(t)
	defer env.close()

	seedUser(t, env.pool, 1, 0)
	seedCourse(t, env.pool, 10, 400)

	resp := env.doRequest(t, http.MethodPost, "/v1/completions", `{"user_id":1,"course_id":10}`)
	resp.Body.Close()

	count, _ := getTransactionSummary(t, env.pool, 1)
	if count != 0 {
		t.Fatalf("expected 0 transactions, got %d", count)
	}
}

func TestCompleteCourseUserNotFound(t *testing.T) {
	env := setupTest(t)
	defer env.close()

	seedCourse(t, env.pool, 10, 400)

	resp := env.doRequest(t, http.MethodPost, "/v1/completions", `{"user_id":9,"course_id":10}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestCompleteCourseCourseNotFound(t *testing.T) {
	env := setupTest(t)
	defer env.close()

	seedUser(t, env.pool, 1, 0)

	resp := env.doRequest(t, http.MethodPost, "/v1/completions", `{"user_id":1,"course_id":99}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}
