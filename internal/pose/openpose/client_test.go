package openpose

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/your-org/vmask/internal/pose"
	"github.com/your-org/vmask/internal/subclip"
)

func writeClip(t *testing.T, content []byte) subclip.Clip {
	t.Helper()
	path := filepath.Join(t.TempDir(), subclip.FileName(1, 0))
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return subclip.Clip{ObjectID: 1, StartFrame: 0, Path: path}
}

func TestEstimateDecodesFrames(t *testing.T) {
	clipContent := []byte("clip bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/estimate-pose-on-video", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("video")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "video.mp4", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			null,
			{
				"pose_keypoints": [[12.5, 30.25, 0.9], [0, 0, 0]],
				"face_keypoints": null,
				"left_hand_keypoints": [[1, 2, 0.4]],
				"right_hand_keypoints": null
			}
		]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, 1)
	poses, err := client.Estimate(context.Background(), writeClip(t, clipContent))
	require.NoError(t, err)
	require.Len(t, poses, 2)

	require.Nil(t, poses[0])

	p := poses[1]
	require.Equal(t, pose.StrategyOpenpose, p.Strategy)
	require.Len(t, p.Body, 2)
	require.InDelta(t, 12.5, p.Body[0].X, 1e-9)
	require.InDelta(t, 30.25, p.Body[0].Y, 1e-9)
	require.InDelta(t, 0.9, p.Body[0].Score, 1e-9)
	require.Nil(t, p.Face)
	require.Len(t, p.LeftHand, 1)
	require.Nil(t, p.RightHand)
}

func TestEstimateRetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, 3)
	poses, err := client.Estimate(context.Background(), writeClip(t, []byte("x")))
	require.NoError(t, err)
	require.Empty(t, poses)
	require.Equal(t, 2, attempts)
}

func TestEstimateMissingClipFile(t *testing.T) {
	client := NewClient("http://localhost:1", time.Second, 1)
	_, err := client.Estimate(context.Background(), subclip.Clip{Path: "/nonexistent/clip.mp4"})
	require.Error(t, err)
}
