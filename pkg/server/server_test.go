package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/yurifrl/gastos/pkg/service"
	"github.com/yurifrl/gastos/pkg/storage/memory"
)

const statement = "Fecha;Concepto;Importe\n" +
	"15/01/2024;MERCADONA;-42,10\n" +
	"16/01/2024;XYZ123;-9,99\n" +
	"17/01/2024;NOMINA ACME;1.500,00\n"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.New()
	logger := log.New(io.Discard)
	p := service.New(service.Options{Ledgers: store, Mappings: store, Logger: logger})
	ts := httptest.NewServer(New(p, logger).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func upload(t *testing.T, url, filename, content string, fields map[string]string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	fw, err := mw.CreateFormFile("statement", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Post(url, mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

type resultResponse struct {
	Status     string `json:"status"`
	ImportID   string `json:"import_id"`
	New        int    `json:"new"`
	Duplicates int    `json:"duplicates"`
	Learned    int    `json:"learned"`
	LedgerSize int    `json:"ledger_size"`
	Error      string `json:"error"`
}

func TestPreviewAndCommit(t *testing.T) {
	ts := newTestServer(t)

	resp := upload(t, ts.URL+"/api/preview", "enero.csv", statement, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("preview status = %d", resp.StatusCode)
	}
	var preview struct {
		Month string `json:"month"`
		Data  []Row  `json:"data"`
	}
	decode(t, resp, &preview)
	if preview.Month != "2024-01" || len(preview.Data) != 3 {
		t.Fatalf("unexpected preview %+v", preview)
	}

	for i := range preview.Data {
		if preview.Data[i].Concept == "XYZ123" {
			if !preview.Data[i].NeedsReview {
				t.Error("XYZ123 should need review")
			}
			preview.Data[i].Category = "Shopping"
		}
	}
	payload, _ := json.Marshal(commitRequest{Source: "enero.csv", Rows: preview.Data})

	resp, err := http.Post(ts.URL+"/api/profiles/ana/commit", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	var result resultResponse
	decode(t, resp, &result)
	if result.New != 3 || result.Learned != 1 || result.ImportID == "" {
		t.Errorf("unexpected commit result %+v", result)
	}

	resp, err = http.Get(ts.URL + "/api/profiles/ana/review")
	if err != nil {
		t.Fatal(err)
	}
	var review struct {
		Data []Row `json:"data"`
	}
	decode(t, resp, &review)
	if len(review.Data) != 0 {
		t.Errorf("review should be empty, got %+v", review.Data)
	}
}

func TestImportIsIdempotent(t *testing.T) {
	ts := newTestServer(t)

	for i, wantNew := range []int{3, 0} {
		resp := upload(t, ts.URL+"/api/import", "enero.csv", statement, map[string]string{"profile": "ana"})
		var result resultResponse
		decode(t, resp, &result)
		if result.New != wantNew || result.LedgerSize != 3 {
			t.Errorf("import %d: %+v", i, result)
		}
	}
}

func TestTransactionsCSV(t *testing.T) {
	ts := newTestServer(t)
	resp := upload(t, ts.URL+"/api/import", "enero.csv", statement, map[string]string{"profile": "ana"})
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/api/profiles/ana/transactions?format=csv&max=0")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	want := "Date,Concept,Amount,Category\n" +
		"2024-01-16,XYZ123,-9.99,\n" +
		"2024-01-15,MERCADONA,-42.10,Groceries\n"
	if string(body) != want {
		t.Errorf("got:\n%s\nwant:\n%s", body, want)
	}
}

func TestSetCategoryAndMonths(t *testing.T) {
	ts := newTestServer(t)
	resp := upload(t, ts.URL+"/api/import", "enero.csv", statement, map[string]string{"profile": "ana"})
	resp.Body.Close()

	resp, _ = http.Get(ts.URL + "/api/profiles/ana/review")
	var review struct {
		Data []Row `json:"data"`
	}
	decode(t, resp, &review)
	if len(review.Data) != 1 {
		t.Fatalf("review = %+v", review.Data)
	}

	req, _ := http.NewRequest(http.MethodPut,
		ts.URL+"/api/profiles/ana/transactions/"+review.Data[0].Fingerprint+"/category",
		strings.NewReader(`{"category":"Shopping"}`))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("set category status = %d", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodPut, ts.URL+"/api/profiles/ana/transactions/nope/category", strings.NewReader(`{"category":"Shopping"}`))
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown fingerprint status = %d", resp.StatusCode)
	}

	resp, _ = http.Get(ts.URL + "/api/profiles/ana/months")
	var months struct {
		Months []string `json:"months"`
		From   string   `json:"from"`
		To     string   `json:"to"`
	}
	decode(t, resp, &months)
	if len(months.Months) != 1 || months.From != "2024-01-15" || months.To != "2024-01-17" {
		t.Errorf("months = %+v", months)
	}
}

func TestErrorStatuses(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		do     func() *http.Response
		status int
	}{
		{
			name: "missing column",
			do: func() *http.Response {
				return upload(t, ts.URL+"/api/preview", "x.csv", "Fecha;Concepto\n01/01/2024;A\n", nil)
			},
			status: http.StatusUnprocessableEntity,
		},
		{
			name: "import without profile",
			do: func() *http.Response {
				return upload(t, ts.URL+"/api/import", "x.csv", statement, nil)
			},
			status: http.StatusBadRequest,
		},
		{
			name: "invalid profile",
			do: func() *http.Response {
				return upload(t, ts.URL+"/api/import", "x.csv", statement, map[string]string{"profile": "a b"})
			},
			status: http.StatusBadRequest,
		},
		{
			name: "unknown category mapping",
			do: func() *http.Response {
				resp, _ := http.Post(ts.URL+"/api/mappings", "application/json", strings.NewReader(`{"KIWOKO":"Pets"}`))
				return resp
			},
			status: http.StatusBadRequest,
		},
		{
			name: "wrong method",
			do: func() *http.Response {
				resp, _ := http.Get(ts.URL + "/api/import")
				return resp
			},
			status: http.StatusMethodNotAllowed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := tt.do()
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}

func TestCategories(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/categories")
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		Categories []string `json:"categories"`
	}
	decode(t, resp, &body)
	if n := len(body.Categories); n != 11 || body.Categories[n-1] != "Others" {
		t.Errorf("categories = %v", body.Categories)
	}

	resp, _ = http.Post(ts.URL+"/api/mappings", "application/json", strings.NewReader(`{"KIWOKO":"Shopping"}`))
	var learned struct {
		Learned int `json:"learned"`
	}
	decode(t, resp, &learned)
	if learned.Learned != 1 {
		t.Errorf("learned = %d", learned.Learned)
	}
}
