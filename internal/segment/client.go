// Package segment is the client for the external segmentation service:
// it sends the pose prompts and the raw video and receives per-frame
// per-object binary masks.
package segment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/your-org/vmask/internal/mask"
	"github.com/your-org/vmask/internal/remote"
)

// PromptPoint is one seed point: x, y and the positive/negative label.
type PromptPoint [3]int

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

// response is the service's wire format: one base64 PNG (grayscale,
// nonzero = object) per object per frame.
type response struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Frames []struct {
		Objects []string `json:"objects"`
	} `json:"frames"`
}

// SegmentVideo uploads the prompts and video bytes and decodes the
// returned masks into a store. Prompts are indexed by object: prompts[o-1]
// seeds ObjectId o.
func (c *Client) SegmentVideo(ctx context.Context, prompts [][]PromptPoint, videoContent []byte) (*mask.Store, error) {
	var resp response
	err := remote.Do(ctx, "segment-video", c.attempts, func(ctx context.Context) error {
		return c.post(ctx, prompts, videoContent, &resp)
	})
	if err != nil {
		return nil, err
	}
	return decodeMasks(&resp)
}

func (c *Client) post(ctx context.Context, prompts [][]PromptPoint, videoContent []byte, out *response) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	promptsJSON, err := json.Marshal(prompts)
	if err != nil {
		return fmt.Errorf("marshal prompts: %w", err)
	}
	if err := mw.WriteField("prompts", string(promptsJSON)); err != nil {
		return fmt.Errorf("write prompts field: %w", err)
	}

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

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/segment-video", &body)
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
		return fmt.Errorf("segment service status %d: %s", res.StatusCode, data)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode segment response: %w", err)
	}
	return nil
}

func decodeMasks(resp *response) (*mask.Store, error) {
	frames := make([][]mask.Mask, len(resp.Frames))
	for i, frame := range resp.Frames {
		frames[i] = make([]mask.Mask, len(frame.Objects))
		for o, encoded := range frame.Objects {
			m, err := decodeMask(encoded, resp.Width, resp.Height)
			if err != nil {
				return nil, fmt.Errorf("frame %d object %d: %w", i, o+1, err)
			}
			frames[i][o] = m
		}
	}
	return mask.NewStore(resp.Width, resp.Height, frames)
}

func decodeMask(encoded string, width, height int) (mask.Mask, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return mask.Mask{}, fmt.Errorf("decode base64: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return mask.Mask{}, fmt.Errorf("decode png: %w", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != width || bounds.Dy() != height {
		return mask.Mask{}, fmt.Errorf("mask is %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), width, height)
	}

	m := mask.New(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			if r|g|b != 0 {
				m.Set(x, y)
			}
		}
	}
	return m, nil
}
