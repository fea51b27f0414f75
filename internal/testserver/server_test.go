package testserver

import (
	"bytes"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/wrussell84/stampede/internal/payload"
)

func createProduct(t *testing.T, ts *httptest.Server, id int64) *http.Response {
	t.Helper()
	body, err := payload.Valid(rand.New(rand.NewSource(id)), id)
	if err != nil {
		t.Fatal(err)
	}
	url := ts.URL + "/products/" + strconv.FormatInt(id, 10) + "/details"
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestCreateThenGet(t *testing.T) {
	ts := httptest.NewServer(New().Handler())
	defer ts.Close()

	resp := createProduct(t, ts, 1)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}

	get, err := http.Get(ts.URL + "/products/1")
	if err != nil {
		t.Fatal(err)
	}
	defer get.Body.Close()
	if get.StatusCode != http.StatusOK {
		t.Errorf("get status = %d, want 200", get.StatusCode)
	}
}

func TestGetMissingReturns404(t *testing.T) {
	ts := httptest.NewServer(New().Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/products/999")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestIncompletePayloadRejected(t *testing.T) {
	ts := httptest.NewServer(New().Handler())
	defer ts.Close()

	body, err := payload.Invalid(5)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(ts.URL+"/products/5/details", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for schema-incomplete payload", resp.StatusCode)
	}
}

func TestMalformedJSONRejected(t *testing.T) {
	ts := httptest.NewServer(New().Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/products/1/details", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for malformed JSON", resp.StatusCode)
	}
}

func TestMismatchedIDRejected(t *testing.T) {
	ts := httptest.NewServer(New().Handler())
	defer ts.Close()

	body, err := payload.Valid(rand.New(rand.NewSource(1)), 7)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(ts.URL+"/products/8/details", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 when product_id disagrees with the path", resp.StatusCode)
	}
}

func TestCountTracksStores(t *testing.T) {
	s := New()
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	for id := int64(1); id <= 3; id++ {
		resp := createProduct(t, ts, id)
		resp.Body.Close()
	}
	if s.Count() != 3 {
		t.Errorf("Count() = %d, want 3", s.Count())
	}

	// Re-creating an existing id overwrites rather than duplicating.
	resp := createProduct(t, ts, 2)
	resp.Body.Close()
	if s.Count() != 3 {
		t.Errorf("Count() after overwrite = %d, want 3", s.Count())
	}
}
