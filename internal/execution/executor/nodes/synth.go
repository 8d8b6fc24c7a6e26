// Package nodes implements the built-in node executors. Real model
// inference stays out of process: every executor here synthesizes its
// outputs deterministically from the input content hashes and params,
// so identical invocations produce identical bytes and results are safe
// to cache.
package nodes

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"github.com/pixelflow-labs/pixelflow-go/internal/execution/executor"
)

// seed folds the identifying parts of an execution into one digest that
// drives all synthetic payload generation.
func seed(parts ...string) [32]byte {
	return sha256.Sum256([]byte(strings.Join(parts, ":")))
}

// seedFloat maps an offset of the seed to [0,1).
func seedFloat(s [32]byte, offset int) float64 {
	var buf [8]byte
	for i := range buf {
		buf[i] = s[(offset+i)%len(s)]
	}
	v := binary.BigEndian.Uint64(buf[:])
	return float64(v%1_000_000) / 1_000_000
}

// synthPNG renders a small deterministic RGBA image from the seed.
func synthPNG(s [32]byte, width, height int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) % len(s)
			img.SetRGBA(x, y, color.RGBA{
				R: s[i],
				G: s[(i+7)%len(s)],
				B: s[(i+13)%len(s)],
				A: 255,
			})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func synthGrayPNG(s [32]byte, width, height int) ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: s[(y*width+x)%len(s)]})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func marshalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return data, nil
}

func paramString(params map[string]any, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

func paramFloat(params map[string]any, key string, def float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

func paramInt(params map[string]any, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

func paramBool(params map[string]any, key string, def bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return def
}

// inputHashes lists the content hashes bound to a port, in binding order.
func inputHashes(ec *executor.Context, portID string) []string {
	refs := ec.Inputs[portID]
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		out = append(out, ref.SHA256)
	}
	return out
}

func paramsFingerprint(params map[string]any) string {
	raw, err := json.Marshal(params)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("%x", sum[:8])
}
