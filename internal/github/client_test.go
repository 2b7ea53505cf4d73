package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"
)

func labelsJSON(names ...string) []map[string]string {
	out := make([]map[string]string, 0, len(names))
	for _, n := range names {
		out = append(out, map[string]string{"name": n})
	}
	return out
}

func TestClient_ListLabels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/apache/mxnet/labels" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
			t.Errorf("unexpected auth header: %s", auth)
		}
		json.NewEncoder(w).Encode(labelsJSON("bug", "operator", "feature request"))
	}))
	defer server.Close()

	c := NewClient(StaticToken("test-token"), WithBaseURL(server.URL))
	got, err := c.ListLabels(context.Background(), "apache/mxnet")
	if err != nil {
		t.Fatalf("ListLabels() error = %v", err)
	}
	if want := []string{"bug", "operator", "feature request"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ListLabels() = %v, want %v", got, want)
	}
}

func TestClient_ListLabels_Paginated(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "", "1":
			w.Header().Set("Link", fmt.Sprintf(`<%s/repos/a/b/labels?per_page=100&page=2>; rel="next", <%s/repos/a/b/labels?per_page=100&page=2>; rel="last"`, server.URL, server.URL))
			json.NewEncoder(w).Encode(labelsJSON("bug"))
		case "2":
			json.NewEncoder(w).Encode(labelsJSON("wip"))
		default:
			t.Errorf("unexpected page: %s", r.URL.Query().Get("page"))
		}
	}))
	defer server.Close()

	c := NewClient(StaticToken("t"), WithBaseURL(server.URL))
	got, err := c.ListLabels(context.Background(), "a/b")
	if err != nil {
		t.Fatalf("ListLabels() error = %v", err)
	}
	if want := []string{"bug", "wip"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ListLabels() = %v, want %v", got, want)
	}
}

func TestClient_SetIssueLabels(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody struct {
		Labels []string `json:"labels"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		json.NewEncoder(w).Encode(labelsJSON(gotBody.Labels...))
	}))
	defer server.Close()

	c := NewClient(StaticToken("t"), WithBaseURL(server.URL))
	if err := c.SetIssueLabels(context.Background(), "a/b", 42, []string{"bug", "operator"}); err != nil {
		t.Fatalf("SetIssueLabels() error = %v", err)
	}

	if gotMethod != http.MethodPut {
		t.Errorf("method = %s, want PUT", gotMethod)
	}
	if gotPath != "/repos/a/b/issues/42/labels" {
		t.Errorf("path = %s", gotPath)
	}
	if want := []string{"bug", "operator"}; !reflect.DeepEqual(gotBody.Labels, want) {
		t.Errorf("body labels = %v, want %v", gotBody.Labels, want)
	}
}

func TestClient_SetIssueLabels_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Labels []string `json:"labels"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		if body.Labels == nil {
			t.Error("labels field absent; clearing an issue needs an explicit empty list")
		}
		w.Write([]byte("[]"))
	}))
	defer server.Close()

	c := NewClient(StaticToken("t"), WithBaseURL(server.URL))
	if err := c.SetIssueLabels(context.Background(), "a/b", 1, nil); err != nil {
		t.Fatalf("SetIssueLabels() error = %v", err)
	}
}

func TestClient_APIError(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantInMsg  string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"Bad credentials"}`, "Bad credentials"},
		{"not found", http.StatusNotFound, `{"message":"Not Found"}`, "Not Found"},
		{"non-JSON body", http.StatusBadGateway, "upstream exploded", "upstream exploded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewClient(StaticToken("t"), WithBaseURL(server.URL))
			err := c.SetIssueLabels(context.Background(), "a/b", 1, []string{"bug"})
			if err == nil {
				t.Fatal("expected error")
			}

			apiErr, ok := err.(*APIError)
			if !ok {
				t.Fatalf("error type = %T, want *APIError", err)
			}
			if apiErr.HTTPStatus() != tt.status {
				t.Errorf("status = %d, want %d", apiErr.HTTPStatus(), tt.status)
			}
			if msg := apiErr.Error(); !strings.Contains(msg, tt.wantInMsg) {
				t.Errorf("error %q does not mention %q", msg, tt.wantInMsg)
			}
		})
	}
}

func TestClient_RateLimitRemaining(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rate_limit" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"rate":{"limit":5000,"remaining":4321}}`))
	}))
	defer server.Close()

	c := NewClient(StaticToken("t"), WithBaseURL(server.URL))
	remaining, err := c.RateLimitRemaining(context.Background())
	if err != nil {
		t.Fatalf("RateLimitRemaining() error = %v", err)
	}
	if remaining != 4321 {
		t.Errorf("remaining = %d, want 4321", remaining)
	}
}

func TestClient_CallTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte("[]"))
	}))
	defer server.Close()

	c := NewClient(StaticToken("t"), WithBaseURL(server.URL), WithCallTimeout(20*time.Millisecond))
	_, err := c.ListLabels(context.Background(), "a/b")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if ctxErr := context.DeadlineExceeded; !errors.Is(err, ctxErr) {
		t.Errorf("error %v does not unwrap to %v", err, ctxErr)
	}
}

func TestNextPageURL(t *testing.T) {
	tests := []struct {
		name string
		link string
		want string
	}{
		{
			name: "next present",
			link: `<https://api.github.com/repos/a/b/labels?page=2>; rel="next", <https://api.github.com/repos/a/b/labels?page=5>; rel="last"`,
			want: "https://api.github.com/repos/a/b/labels?page=2",
		},
		{
			name: "last page",
			link: `<https://api.github.com/repos/a/b/labels?page=1>; rel="first", <https://api.github.com/repos/a/b/labels?page=4>; rel="prev"`,
			want: "",
		},
		{name: "no header", link: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextPageURL(tt.link); got != tt.want {
				t.Errorf("nextPageURL(%q) = %q, want %q", tt.link, got, tt.want)
			}
		})
	}
}
