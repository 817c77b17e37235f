package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func TestNewClientBaseURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{addr: "127.0.0.1:5000", want: "http://127.0.0.1:5000"},
		{addr: "http://localhost:5000/", want: "http://localhost:5000"},
		{addr: "https://rtd.example.com", want: "https://rtd.example.com"},
		{addr: "unix:///var/run/rtdconv.sock", want: "http://unix"},
	}
	for _, tt := range tests {
		if got := NewClient(tt.addr).baseURL; got != tt.want {
			t.Errorf("NewClient(%q).baseURL = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func TestConvert(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/convert" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		b, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(b), `"referenceResistance":1000`) {
			t.Errorf("request body = %s", b)
		}
		_, _ = io.WriteString(w, `{"resistance":1385.055,"referenceResistance":1000,"temperature":100}`)
	})

	resp, err := c.Convert(1385.055, 1000)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if resp.Temperature != 100 {
		t.Errorf("Temperature = %v, want 100", resp.Temperature)
	}
}

func TestAPIError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/convert":
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = io.WriteString(w, `{"error":"resistance 5 Ω is out of domain","kind":"outOfDomain"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"object not found"}`)
		}
	})

	_, err := c.Convert(5, 0)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Convert() error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity || apiErr.Kind != "outOfDomain" {
		t.Errorf("apiErr = %+v", apiErr)
	}

	_, err = c.DownloadOutput("output_missing.csv", FormatCSV)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("DownloadOutput() error = %v, want ErrNotFound", err)
	}

	if _, err := c.DownloadOutput("x.csv", "pdf"); err == nil {
		t.Error("DownloadOutput() with unknown format succeeded")
	}
}

func TestSetters(t *testing.T) {
	var got []string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got = append(got, r.Method+" "+r.URL.Path+" "+string(b))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `"ok"`)
	})

	if msg, err := c.SetDegree(3); err != nil || msg != "ok" {
		t.Fatalf("SetDegree() = %q, %v", msg, err)
	}
	if _, err := c.SetReferenceResistance(1000); err != nil {
		t.Fatalf("SetReferenceResistance() error = %v", err)
	}

	want := []string{"PUT /api/v1/degree 3", "PUT /api/v1/reference-resistance 1000"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("requests = %q, want %q", got, want)
	}
}

func TestUploadBatches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pt100.csv")
	if err := os.WriteFile(path, []byte("R,T\n100,0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
		}
		if m := r.FormValue("method"); m != "poly_fit" {
			t.Errorf("method = %q", m)
		}
		files := r.MultipartForm.File["files[]"]
		if len(files) != 1 || files[0].Filename != "pt100.csv" {
			t.Errorf("files = %+v", files)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"abc","method":"poly_fit","outputs":[{"file":"pt100.csv","output":"output_pt100.csv"}]}`)
	})

	resp, err := c.UploadBatches([]string{path}, "poly_fit", "")
	if err != nil {
		t.Fatalf("UploadBatches() error = %v", err)
	}
	if resp.ID != "abc" || len(resp.Outputs) != 1 || resp.Outputs[0].Output != "output_pt100.csv" {
		t.Errorf("resp = %+v", resp)
	}

	if _, err := c.UploadBatches([]string{filepath.Join(dir, "missing.csv")}, "", ""); err == nil {
		t.Error("UploadBatches() with a missing file succeeded")
	}
}

func TestUploadBatchesAllRejected(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"id":"abc","method":"newton_raphson","outputs":[],"rejected":[{"file":"a.pdf","reason":"invalid file format"}]}`)
	})

	dir := t.TempDir()
	path := filepath.Join(dir, "a.pdf")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	resp, err := c.UploadBatches([]string{path}, "", "")
	if err == nil {
		t.Fatal("UploadBatches() error = nil")
	}
	if resp == nil || len(resp.Rejected) != 1 || resp.Rejected[0].File != "a.pdf" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestSubscribeEvents(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "event:batch.completed\ndata:{\"id\":\"abc\"}\n\n")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := c.SubscribeEvents(ctx)
	if err != nil {
		t.Fatalf("SubscribeEvents() error = %v", err)
	}
	ev, ok := <-ch
	if !ok {
		t.Fatal("channel closed before an event arrived")
	}
	if ev.Name != "batch.completed" || string(ev.Data) != `{"id":"abc"}` {
		t.Errorf("event = %+v", ev)
	}
	if _, ok := <-ch; ok {
		t.Error("channel not closed after the stream ended")
	}
}

func TestServerNotRunning(t *testing.T) {
	c := NewClient("unix://" + filepath.Join(t.TempDir(), "missing.sock"))
	if _, err := c.GetVersion(); !errors.Is(err, ErrServerNotRunning) {
		t.Errorf("GetVersion() error = %v, want ErrServerNotRunning", err)
	}
}

func TestOutputs(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/outputs":
			_, _ = io.WriteString(w, `[{"name":"output_a.csv","modTime":"2024-05-01T10:00:00Z"}]`)
		case r.Method == http.MethodDelete && r.URL.Path == "/api/v1/outputs/output_a.csv":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"object not found"}`)
		}
	})

	outputs, err := c.ListOutputs()
	if err != nil {
		t.Fatalf("ListOutputs() error = %v", err)
	}
	if len(outputs) != 1 || outputs[0].Name != "output_a.csv" || outputs[0].ModTime.Year() != 2024 {
		t.Errorf("outputs = %+v", outputs)
	}

	if err := c.DeleteOutput("output_a.csv"); err != nil {
		t.Errorf("DeleteOutput() error = %v", err)
	}
	if err := c.DeleteOutput("output_b.csv"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteOutput() error = %v, want ErrNotFound", err)
	}
}
