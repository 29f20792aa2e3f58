package segment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/your-org/vmask/internal/remote"
)

func encodeMaskPNG(t *testing.T, w, h int, set [][2]int) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for _, p := range set {
		img.SetGray(p[0], p[1], color.Gray{Y: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestSegmentVideoDecodesMasks(t *testing.T) {
	prompts := [][]PromptPoint{{{10, 20, 1}}}
	video := []byte("not really a video")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/segment-video", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		var gotPrompts [][]PromptPoint
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("prompts")), &gotPrompts))
		require.Equal(t, prompts, gotPrompts)

		file, _, err := r.FormFile("video")
		require.NoError(t, err)
		defer file.Close()

		resp := map[string]interface{}{
			"width":  4,
			"height": 3,
			"frames": []map[string]interface{}{
				{"objects": []string{encodeMaskPNG(t, 4, 3, [][2]int{{1, 1}, {2, 1}})}},
				{"objects": []string{encodeMaskPNG(t, 4, 3, nil)}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, 1)
	store, err := client.SegmentVideo(context.Background(), prompts, video)
	require.NoError(t, err)

	require.Equal(t, 2, store.FrameCount())
	require.Equal(t, 1, store.ObjectCount())
	require.True(t, store.At(0, 1).At(1, 1))
	require.True(t, store.At(0, 1).At(2, 1))
	require.False(t, store.At(0, 1).At(0, 0))
	require.True(t, store.At(1, 1).Empty())
}

func TestSegmentVideoRetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		resp := map[string]interface{}{
			"width":  2,
			"height": 2,
			"frames": []map[string]interface{}{
				{"objects": []string{encodeMaskPNG(t, 2, 2, [][2]int{{0, 0}})}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, 3)
	store, err := client.SegmentVideo(context.Background(), [][]PromptPoint{{{0, 0, 1}}}, []byte("v"))
	require.NoError(t, err)
	require.Equal(t, 2, attempts)
	require.Equal(t, 1, store.FrameCount())
}

func TestSegmentVideoExhaustsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, 2)
	_, err := client.SegmentVideo(context.Background(), nil, []byte("v"))
	require.ErrorIs(t, err, remote.ErrUnavailable)
}

func TestSegmentVideoClientErrorIsFatal(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, "bad prompts")
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, 3)
	_, err := client.SegmentVideo(context.Background(), nil, []byte("v"))
	require.Error(t, err)
	require.NotErrorIs(t, err, remote.ErrUnavailable)
	require.Equal(t, 1, attempts, "4xx must not be retried")
}

func TestSegmentVideoSizeMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"width":  8,
			"height": 8,
			"frames": []map[string]interface{}{
				{"objects": []string{encodeMaskPNG(t, 2, 2, nil)}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, 1)
	_, err := client.SegmentVideo(context.Background(), nil, []byte("v"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "want 8x8")
}
