package voiceprint

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestFit(t *testing.T) {
	long := ramp(200, 1)
	if got := Fit(long, 128); len(got) != 128 || got[127] != 127 {
		t.Errorf("truncate: len=%d last=%f", len(got), got[len(got)-1])
	}
	short := []float32{1, 2}
	got := Fit(short, 4)
	if len(got) != 4 || got[1] != 2 || got[2] != 0 || got[3] != 0 {
		t.Errorf("pad: %v", got)
	}
	got[0] = 9
	if short[0] != 1 {
		t.Error("Fit aliases input")
	}
}

func TestGeneratorIdentity(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	g := NewGenerator(nil, WithLogger(logger))
	if !g.Degraded() || g.Dimension() != 0 {
		t.Fatalf("expected degraded generator, dim=%d", g.Dimension())
	}
	if strings.Count(buf.String(), "identity") != 1 {
		t.Errorf("expected one degraded-mode notice, log:\n%s", buf.String())
	}

	features := ramp(13, 0.5)
	emb, err := g.Generate(features)
	if err != nil {
		t.Fatal(err)
	}
	if len(emb) != 13 {
		t.Fatalf("expected 13 values, got %d", len(emb))
	}
	for i := range features {
		if emb[i] != features[i] {
			t.Errorf("emb[%d] = %f, want %f", i, emb[i], features[i])
		}
	}
	if _, err := g.Generate(nil); err == nil {
		t.Error("expected error for empty features")
	}
	if strings.Count(buf.String(), "identity") != 1 {
		t.Error("degraded-mode notice repeated on Generate")
	}
}

func TestGeneratorProjection(t *testing.T) {
	g := NewGenerator(NewProjectionModel(InputWidth, 64, 1))
	if g.Degraded() || g.Dimension() != 64 {
		t.Fatalf("Degraded=%v Dimension=%d", g.Degraded(), g.Dimension())
	}

	a, err := g.Generate(ramp(13, 0.1))
	if err != nil {
		t.Fatal(err)
	}
	b, _ := g.Generate(ramp(13, 0.1))
	if len(a) != 64 {
		t.Fatalf("expected 64 values, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic at %d", i)
		}
	}

	// Scaling the input must not change the direction of the embedding.
	c, _ := g.Generate(ramp(13, 0.3))
	if s := Cosine(a, c); s < 0.9999 {
		t.Errorf("Cosine(scaled) = %f", s)
	}
}

func TestProjectionPreservesSimilarity(t *testing.T) {
	p := NewProjectionModel(InputWidth, 64, 9)
	x := Fit(ramp(13, 1), InputWidth)
	y := Fit(ramp(13, 1), InputWidth)
	y[3] += 0.5
	z := Fit([]float32{5, -3, 0, 2, -7, 1, 1, -1, 0, 4, -2, 3, -6}, InputWidth)

	ex, _ := p.Embed(x)
	ey, _ := p.Embed(y)
	ez, _ := p.Embed(z)
	if Cosine(ex, ey) <= Cosine(ex, ez) {
		t.Errorf("near pair %f not closer than far pair %f", Cosine(ex, ey), Cosine(ex, ez))
	}

	if _, err := p.Embed(ramp(13, 1)); err == nil {
		t.Error("expected width error")
	}
}

type failingModel struct{ dim int }

func (m failingModel) Embed([]float32) ([]float32, error) {
	return make([]float32, m.dim+1), nil
}
func (m failingModel) Dimension() int { return m.dim }
func (m failingModel) Close() error   { return errors.New("closed twice") }

func TestGeneratorRejectsWrongDimension(t *testing.T) {
	g := NewGenerator(failingModel{dim: 4})
	if _, err := g.Generate(ramp(13, 1)); err == nil {
		t.Error("expected dimension mismatch error")
	}
	if err := g.Close(); err == nil {
		t.Error("expected Close to return model error")
	}
}

func TestONNXStub(t *testing.T) {
	if ONNXAvailable() {
		t.Skip("built with onnx tag")
	}
	_, err := NewONNXModel(ONNXConfig{Path: "model.onnx", Dimension: 64})
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable, got %v", err)
	}
}
