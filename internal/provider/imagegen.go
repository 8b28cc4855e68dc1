package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	imageDefaultURL = "https://router.huggingface.co/hf-inference/models/stabilityai/stable-diffusion-xl-base-1.0"
	// imagesPerPrompt is how many variations one request generates.
	imagesPerPrompt = 4
	// imageMinBytes: responses smaller than this are error payloads, not
	// image data.
	imageMinBytes = 1000
)

// ImageConfig configures the image generation client.
type ImageConfig struct {
	APIURL  string
	APIKey  string
	DataDir string
	Client  *http.Client
	Logger  *slog.Logger
}

// ImageClient generates images from a text prompt and saves them to the
// data directory.
type ImageClient struct {
	apiURL  string
	apiKey  string
	dataDir string
	client  *http.Client
	logger  *slog.Logger
}

func NewImageClient(cfg ImageConfig) *ImageClient {
	if cfg.APIURL == "" {
		cfg.APIURL = imageDefaultURL
	}
	if cfg.Client == nil {
		cfg.Client = sharedClient(120 * time.Second)
	}
	return &ImageClient{
		apiURL:  cfg.APIURL,
		apiKey:  cfg.APIKey,
		dataDir: cfg.DataDir,
		client:  cfg.Client,
		logger:  cfg.Logger,
	}
}

type imagePayload struct {
	Inputs string `json:"inputs"`
}

// Generate requests several variations concurrently and writes the valid
// ones to <dataDir>/<prompt-with-underscores><n>.jpg. It returns the saved
// file paths; per-image API errors are logged and skipped.
func (c *ImageClient) Generate(ctx context.Context, prompt string) ([]string, error) {
	results := make([][]byte, imagesPerPrompt)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < imagesPerPrompt; i++ {
		g.Go(func() error {
			data, err := c.generateOne(gctx, prompt)
			if err != nil {
				return err
			}
			results[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("image generation: %w", err)
	}

	if err := os.MkdirAll(c.dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	base := strings.ReplaceAll(prompt, " ", "_")
	var saved []string
	for i, data := range results {
		if !validImageBytes(data) {
			c.logger.Warn("image service returned an error payload",
				"index", i+1, "body", truncate(string(data), 200))
			continue
		}
		path := filepath.Join(c.dataDir, fmt.Sprintf("%s%d.jpg", base, i+1))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return saved, fmt.Errorf("save image: %w", err)
		}
		saved = append(saved, path)
	}
	return saved, nil
}

func (c *ImageClient) generateOne(ctx context.Context, prompt string) ([]byte, error) {
	payload := imagePayload{
		Inputs: fmt.Sprintf("%s, quality=4K, sharpness=maximum, Ultra High details, high resolution, seed = %d",
			prompt, rand.IntN(1000000)),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image request: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// validImageBytes distinguishes genuine image data from the service's JSON
// error responses, which start with {"e and are far smaller than any
// rendered image.
func validImageBytes(data []byte) bool {
	if len(data) < imageMinBytes {
		return false
	}
	return !bytes.HasPrefix(data, []byte(`{"e`))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
