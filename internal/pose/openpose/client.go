// Package openpose is the client for the remote openpose service. It
// implements pose.Backend by uploading a sub-clip and decoding the
// per-frame keypoint vectors.
package openpose

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/your-org/vmask/internal/pose"
	"github.com/your-org/vmask/internal/remote"
	"github.com/your-org/vmask/internal/subclip"
)

type Client struct {
	baseURL  string
	http     *http.Client
	attempts int
}

func NewClient(baseURL string, timeout time.Duration, attempts int) *Client {
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: timeout},
		attempts: attempts,
	}
}

// framePose is the service's wire format for one frame. Each keypoint
// is [x, y, confidence]; a null vector means that family was not
// detected.
type framePose struct {
	PoseKeypoints      [][3]float64 `json:"pose_keypoints"`
	FaceKeypoints      [][3]float64 `json:"face_keypoints"`
	LeftHandKeypoints  [][3]float64 `json:"left_hand_keypoints"`
	RightHandKeypoints [][3]float64 `json:"right_hand_keypoints"`
}

// Estimate uploads the sub-clip and returns one pose per clip frame.
func (c *Client) Estimate(ctx context.Context, clip subclip.Clip) ([]*pose.Pose, error) {
	content, err := os.ReadFile(clip.Path)
	if err != nil {
		return nil, fmt.Errorf("read sub-clip %s: %w", clip.Path, err)
	}

	var frames []*framePose
	err = remote.Do(ctx, "estimate-pose-on-video", c.attempts, func(ctx context.Context) error {
		return c.post(ctx, content, &frames)
	})
	if err != nil {
		return nil, err
	}

	poses := make([]*pose.Pose, len(frames))
	for i, f := range frames {
		if f == nil {
			continue
		}
		poses[i] = &pose.Pose{
			Strategy:  pose.StrategyOpenpose,
			Body:      toKeypoints(f.PoseKeypoints),
			Face:      toKeypoints(f.FaceKeypoints),
			LeftHand:  toKeypoints(f.LeftHandKeypoints),
			RightHand: toKeypoints(f.RightHandKeypoints),
		}
	}
	return poses, nil
}

func (c *Client) post(ctx context.Context, videoContent []byte, out *[]*framePose) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("video", "video.mp4")
	if err != nil {
		return fmt.Errorf("create video part: %w", err)
	}
	if _, err := fw.Write(videoContent); err != nil {
		return fmt.Errorf("write video part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/estimate-pose-on-video", &body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	res, err := c.http.Do(req)
	if err != nil {
		return remote.Classify(err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", remote.ErrUnavailable, res.StatusCode)
	}
	if res.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("openpose service status %d: %s", res.StatusCode, data)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode openpose response: %w", err)
	}
	return nil
}

func toKeypoints(raw [][3]float64) []*pose.Keypoint {
	if raw == nil {
		return nil
	}
	out := make([]*pose.Keypoint, len(raw))
	for i, kp := range raw {
		out[i] = &pose.Keypoint{X: kp[0], Y: kp[1], Score: kp[2]}
	}
	return out
}
