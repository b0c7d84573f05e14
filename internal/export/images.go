package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/allthatprinting/pinto/backend-go/internal/design"
)

const (
	maxImageBytes     = 20 << 20 // 20MB
	decodeConcurrency = 4
	assetPathPrefix   = "/assets/"
)

var ErrUnsupportedSource = errors.New("unsupported image source")

// ImageLoader fetches and decodes the image behind an element's src.
type ImageLoader interface {
	Load(ctx context.Context, src string) (image.Image, error)
}

// SourceLoader resolves data URIs, http(s) URLs and uploaded asset paths.
// Asset paths are read from AssetDir when set; otherwise root-relative
// sources are fetched from BaseURL.
type SourceLoader struct {
	Client   *http.Client
	AssetDir string
	BaseURL  string
}

// NewSourceLoader creates a loader that reads uploaded assets from assetDir.
func NewSourceLoader(assetDir string) *SourceLoader {
	return &SourceLoader{
		Client:   &http.Client{Timeout: 30 * time.Second},
		AssetDir: assetDir,
	}
}

func (l *SourceLoader) Load(ctx context.Context, src string) (image.Image, error) {
	var (
		r   io.ReadCloser
		err error
	)
	switch {
	case strings.HasPrefix(src, "data:"):
		data, derr := decodeDataURI(src)
		if derr != nil {
			return nil, derr
		}
		r = io.NopCloser(bytes.NewReader(data))
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		r, err = l.fetch(ctx, src)
	case strings.HasPrefix(src, assetPathPrefix) && l.AssetDir != "":
		name := filepath.Base(strings.TrimPrefix(src, assetPathPrefix))
		r, err = os.Open(filepath.Join(l.AssetDir, name))
	case strings.HasPrefix(src, "/") && l.BaseURL != "":
		r, err = l.fetch(ctx, strings.TrimSuffix(l.BaseURL, "/")+src)
	default:
		return nil, fmt.Errorf("%w: %.32q", ErrUnsupportedSource, src)
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()

	img, _, err := image.Decode(io.LimitReader(r, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func (l *SourceLoader) fetch(ctx context.Context, src string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// decodeDataURI returns the payload of a data: URI.
func decodeDataURI(src string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("malformed data uri")
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("decode data uri: %w", err)
		}
		return data, nil
	}
	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data uri: %w", err)
	}
	return []byte(data), nil
}

// loadImages decodes every image element concurrently and waits for all of
// them. Elements whose source cannot be loaded are returned in paint order
// and do not stop the others.
func loadImages(ctx context.Context, elements []design.Element, loader ImageLoader) (map[string]image.Image, []string) {
	var (
		mu     sync.Mutex
		images = make(map[string]image.Image)
		g      errgroup.Group
	)
	g.SetLimit(decodeConcurrency)

	for _, el := range elements {
		if el.Type != design.ElementTypeImage {
			continue
		}
		g.Go(func() error {
			img, err := loader.Load(ctx, el.Src)
			if err != nil {
				slog.Warn("load export image", "element", el.ID, "error", err)
				return nil
			}
			mu.Lock()
			images[el.ID] = img
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var failed []string
	for _, el := range elements {
		if el.Type == design.ElementTypeImage && images[el.ID] == nil {
			failed = append(failed, el.ID)
		}
	}
	return images, failed
}
