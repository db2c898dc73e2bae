package registry

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/sugarme/tokenizer"

	"github.com/hyperjump/semblance/internal/cache"
	"github.com/hyperjump/semblance/internal/encoder"
	"github.com/hyperjump/semblance/internal/hub"
	"github.com/hyperjump/semblance/internal/model"
	"github.com/hyperjump/semblance/internal/similarity"
	"github.com/hyperjump/semblance/internal/tokenize"
	"github.com/hyperjump/semblance/pkg/utils"
)

// fakeBackend is a whitespace tokenizer honoring the adapter's truncation params.
type fakeBackend struct {
	trunc *tokenizer.TruncationParams
}

func (f *fakeBackend) WithTruncation(params *tokenizer.TruncationParams) {
	f.trunc = params
}

func (f *fakeBackend) EncodeSingle(sequence string, _ ...bool) (*tokenizer.Encoding, error) {
	tokens := append([]string{"[CLS]"}, strings.Fields(sequence)...)
	tokens = append(tokens, "[SEP]")
	if f.trunc != nil && len(tokens) > f.trunc.MaxLength {
		tokens = tokens[:f.trunc.MaxLength]
	}
	en := &tokenizer.Encoding{
		Tokens:        tokens,
		Ids:           make([]int, len(tokens)),
		AttentionMask: make([]int, len(tokens)),
	}
	for i, tok := range tokens {
		var h int
		for _, c := range tok {
			h = 31*h + int(c)
		}
		if h < 0 {
			h = -h
		}
		en.Ids[i] = h % 30000
		en.AttentionMask[i] = 1
	}
	return en, nil
}

// countingEncoder wraps the mock encoder to observe forward and close calls.
type countingEncoder struct {
	*encoder.MockEncoder
	forwards int
	closed   bool
}

func (c *countingEncoder) Forward(in encoder.Input) ([][]float32, error) {
	c.forwards++
	return c.MockEncoder.Forward(in)
}

func (c *countingEncoder) Close() error {
	c.closed = true
	return c.MockEncoder.Close()
}

func testHandle(modelID string) (*Handle, *countingEncoder) {
	enc := &countingEncoder{MockEncoder: encoder.NewMockEncoder(16)}
	return &Handle{
		ModelID:   modelID,
		Device:    "cpu",
		Format:    hub.FormatModern,
		Config:    &model.Config{HiddenSize: 16, HiddenAct: model.ActGELUApprox},
		Encoder:   enc,
		Tokenizer: tokenize.NewAdapter(&fakeBackend{}),
	}, enc
}

func testRegistry(t *testing.T, withCache bool) *Registry {
	t.Helper()
	var tc *cache.Tiered
	if withCache {
		tc = cache.NewTiered(cache.NewLRU(64), nil)
	}
	load := func(modelID string, _ bool) (*Handle, error) {
		if modelID == "" {
			modelID = hub.DefaultModelID
		}
		h, _ := testHandle(modelID)
		return h, nil
	}
	return New(load, tc, nil)
}

func TestOperationsBeforeInitialize(t *testing.T) {
	r := testRegistry(t, false)

	if _, err := r.Embed("x", 0); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Embed err = %v", err)
	}
	if _, err := r.Similarity("a", "b", 0); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Similarity err = %v", err)
	}
	if _, err := r.Tokenize("a", 0); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Tokenize err = %v", err)
	}
	m, err := r.Rank("a", []string{"b"}, 0)
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Rank err = %v", err)
	}
	if m != similarity.NoMatch {
		t.Errorf("Rank match = %+v, want sentinel", m)
	}
	if _, _, _, ok := r.Describe(); ok {
		t.Error("Describe should report uninitialized")
	}
}

func TestInitializeAndEmbed(t *testing.T) {
	r := testRegistry(t, false)
	if err := r.Initialize("", true); err != nil {
		t.Fatal(err)
	}
	modelID, device, format, ok := r.Describe()
	if !ok {
		t.Fatal("Describe should report initialized")
	}
	if modelID != hub.DefaultModelID {
		t.Errorf("empty model id should select the default, got %s", modelID)
	}
	if device != "cpu" || format != hub.FormatModern {
		t.Errorf("device=%s format=%s", device, format)
	}

	emb, err := r.Embed("the cat sat", 0)
	if err != nil {
		t.Fatal(err)
	}
	if norm := utils.L2Norm(emb); math.Abs(norm-1.0) > 1e-5 {
		t.Errorf("norm = %f, want 1.0", norm)
	}
}

func TestSimilarity_selfAndSymmetry(t *testing.T) {
	r := testRegistry(t, false)
	if err := r.Initialize("m", true); err != nil {
		t.Fatal(err)
	}

	self, err := r.Similarity("the cat sat", "the cat sat", 0)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(float64(self)-1.0) > 1e-5 {
		t.Errorf("self similarity = %f, want 1.0", self)
	}

	ab, err := r.Similarity("a b", "c d", 0)
	if err != nil {
		t.Fatal(err)
	}
	ba, err := r.Similarity("c d", "a b", 0)
	if err != nil {
		t.Fatal(err)
	}
	if ab != ba {
		t.Errorf("similarity not symmetric: %f != %f", ab, ba)
	}
}

func TestRank(t *testing.T) {
	r := testRegistry(t, false)
	if err := r.Initialize("m", true); err != nil {
		t.Fatal(err)
	}

	candidates := []string{"banana", "car", "apple"}
	m, err := r.Rank("fruit", candidates, 0)
	if err != nil {
		t.Fatal(err)
	}
	if m.Index < 0 || m.Index >= len(candidates) {
		t.Fatalf("index out of range: %d", m.Index)
	}
	// The winner's pairwise similarity must be the maximum.
	want, err := r.Similarity("fruit", candidates[m.Index], 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range candidates {
		s, err := r.Similarity("fruit", c, 0)
		if err != nil {
			t.Fatal(err)
		}
		if s > want {
			t.Errorf("candidate %q scores %f above the winner's %f", c, s, want)
		}
	}
}

func TestRank_emptyCandidates(t *testing.T) {
	r := testRegistry(t, false)
	if err := r.Initialize("m", true); err != nil {
		t.Fatal(err)
	}
	m, err := r.Rank("q", nil, 0)
	if !errors.Is(err, ErrEmptyCandidates) {
		t.Fatalf("err = %v, want ErrEmptyCandidates", err)
	}
	if m.Index != -1 {
		t.Errorf("index = %d, want -1", m.Index)
	}
}

func TestInitialize_failureKeepsPriorHandle(t *testing.T) {
	good, enc := testHandle("good")
	calls := 0
	load := func(modelID string, _ bool) (*Handle, error) {
		calls++
		if modelID == "bad" {
			return nil, errors.New("resolution failed")
		}
		return good, nil
	}
	r := New(load, nil, nil)

	if err := r.Initialize("good", true); err != nil {
		t.Fatal(err)
	}
	if err := r.Initialize("bad", true); err == nil {
		t.Fatal("expected failure for bad model")
	}
	if calls != 2 {
		t.Fatalf("loader calls = %d", calls)
	}
	if enc.closed {
		t.Error("failed re-init must not close the prior handle")
	}
	modelID, _, _, ok := r.Describe()
	if !ok || modelID != "good" {
		t.Errorf("prior model should survive a failed re-init, got %q ok=%v", modelID, ok)
	}
	if _, err := r.Embed("still works", 0); err != nil {
		t.Errorf("prior model should stay usable: %v", err)
	}
}

func TestInitialize_replacementClosesOldHandle(t *testing.T) {
	first, firstEnc := testHandle("first")
	second, secondEnc := testHandle("second")
	handles := []*Handle{first, second}
	load := func(string, bool) (*Handle, error) {
		h := handles[0]
		handles = handles[1:]
		return h, nil
	}
	r := New(load, nil, nil)

	if err := r.Initialize("first", true); err != nil {
		t.Fatal(err)
	}
	if err := r.Initialize("second", true); err != nil {
		t.Fatal(err)
	}
	if !firstEnc.closed {
		t.Error("replaced handle should be closed")
	}
	if secondEnc.closed {
		t.Error("live handle should not be closed")
	}
	modelID, _, _, _ := r.Describe()
	if modelID != "second" {
		t.Errorf("model = %s, want second", modelID)
	}
}

func TestEmbed_cacheHitSkipsForward(t *testing.T) {
	h, enc := testHandle("m")
	load := func(string, bool) (*Handle, error) { return h, nil }
	r := New(load, cache.NewTiered(cache.NewLRU(8), nil), nil)
	if err := r.Initialize("m", true); err != nil {
		t.Fatal(err)
	}

	a, err := r.Embed("cached text", 0)
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Embed("cached text", 0)
	if err != nil {
		t.Fatal(err)
	}
	if enc.forwards != 1 {
		t.Errorf("forward calls = %d, want 1 (second call should hit the cache)", enc.forwards)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("cached embedding differs from computed one")
		}
	}
}
