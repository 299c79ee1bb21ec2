package veo_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"alchemy/internal/services"
	"alchemy/internal/services/veo"
)

func TestGenerateReturnsOperationName(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var body struct {
			Instances []struct {
				Prompt string          `json:"prompt"`
				Image  json.RawMessage `json:"image"`
			} `json:"instances"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(body.Instances) != 1 || body.Instances[0].Prompt != "surf at golden hour" {
			t.Errorf("unexpected instances: %+v", body.Instances)
		}
		if body.Instances[0].Image != nil {
			t.Errorf("expected no image for text-only request, got %s", body.Instances[0].Image)
		}
		w.Write([]byte(`{"name":"operations/abc123"}`))
	}))
	defer server.Close()

	client := veo.NewClient(veo.Config{APIKey: "key", BaseURL: server.URL, Model: "veo-3.0-generate-001"})
	op, err := client.Generate(context.Background(), "surf at golden hour", nil, "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gotPath != "/models/veo-3.0-generate-001:predictLongRunning" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if op.Name != "operations/abc123" {
		t.Errorf("unexpected operation name %q", op.Name)
	}
	if op.Done {
		t.Error("new operation should not be done")
	}
}

func TestGenerateIncludesImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Instances []struct {
				Image *struct {
					BytesBase64Encoded string `json:"bytesBase64Encoded"`
					MimeType           string `json:"mimeType"`
				} `json:"image"`
			} `json:"instances"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(body.Instances) != 1 || body.Instances[0].Image == nil {
			t.Fatalf("expected image instance, got %+v", body.Instances)
		}
		if body.Instances[0].Image.MimeType != "image/jpeg" {
			t.Errorf("unexpected mime type %q", body.Instances[0].Image.MimeType)
		}
		w.Write([]byte(`{"name":"operations/img"}`))
	}))
	defer server.Close()

	client := veo.NewClient(veo.Config{APIKey: "key", BaseURL: server.URL, Model: "m"})
	if _, err := client.Generate(context.Background(), "pan across the product", []byte{1, 2, 3}, "image/jpeg"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
}

func TestPollResolvesPrimaryURI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/operations/abc123" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{
			"name": "operations/abc123",
			"done": true,
			"response": {
				"candidates": [{
					"content": {"parts": [{"file_data": {"file_uri": "https://files.example/video.mp4"}}]}
				}]
			}
		}`))
	}))
	defer server.Close()

	client := veo.NewClient(veo.Config{APIKey: "key", BaseURL: server.URL, Model: "m"})
	op, err := client.Poll(context.Background(), veo.Operation{Name: "operations/abc123"})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if !op.Done {
		t.Error("expected done operation")
	}
	if op.VideoURI != "https://files.example/video.mp4" {
		t.Errorf("unexpected uri %q", op.VideoURI)
	}
}

func TestPollFallsBackToMetadataThenList(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "video metadata part",
			body: `{
				"done": true,
				"response": {
					"candidates": [{
						"content": {"parts": [
							{"text": "rendering notes"},
							{"video_metadata": {"file_uri": "https://files.example/meta.mp4"}}
						]}
					}]
				}
			}`,
			want: "https://files.example/meta.mp4",
		},
		{
			name: "uris list",
			body: `{"done": true, "uris": ["https://files.example/list.mp4", "https://files.example/other.mp4"]}`,
			want: "https://files.example/list.mp4",
		},
		{
			name: "no uri anywhere",
			body: `{"done": true, "response": {"candidates": []}}`,
			want: "",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client := veo.NewClient(veo.Config{APIKey: "key", BaseURL: server.URL, Model: "m"})
			op, err := client.Poll(context.Background(), veo.Operation{Name: "operations/x"})
			if err != nil {
				t.Fatalf("Poll: %v", err)
			}
			if op.VideoURI != tc.want {
				t.Errorf("uri = %q, want %q", op.VideoURI, tc.want)
			}
		})
	}
}

func TestPollPendingOperation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name": "operations/x", "done": false}`))
	}))
	defer server.Close()

	client := veo.NewClient(veo.Config{APIKey: "key", BaseURL: server.URL, Model: "m"})
	op, err := client.Poll(context.Background(), veo.Operation{Name: "operations/x"})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if op.Done {
		t.Error("expected pending operation")
	}
	if op.VideoURI != "" {
		t.Errorf("pending operation should have no uri, got %q", op.VideoURI)
	}
}

func TestPollSurfacesOperationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"done": true, "error": {"message": "safety filter triggered"}}`))
	}))
	defer server.Close()

	client := veo.NewClient(veo.Config{APIKey: "key", BaseURL: server.URL, Model: "m"})
	op, err := client.Poll(context.Background(), veo.Operation{Name: "operations/x"})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if op.Err == nil {
		t.Fatal("expected operation error")
	}
}

func TestDownloadAppendsKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("key"); got != "secret" {
			t.Errorf("expected key query param, got %q", got)
		}
		w.Write([]byte("mp4 bytes"))
	}))
	defer server.Close()

	client := veo.NewClient(veo.Config{APIKey: "secret", BaseURL: server.URL, Model: "m"})
	data, err := client.Download(context.Background(), server.URL+"/files/video.mp4")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(data) != "mp4 bytes" {
		t.Errorf("unexpected body %q", data)
	}
}

func TestDownloadStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	client := veo.NewClient(veo.Config{APIKey: "key", BaseURL: server.URL, Model: "m"})
	_, err := client.Download(context.Background(), server.URL+"/files/video.mp4")
	var statusErr *services.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("unexpected status %d", statusErr.StatusCode)
	}
}
