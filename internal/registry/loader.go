package registry

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/semblance/internal/encoder"
	"github.com/hyperjump/semblance/internal/hub"
	"github.com/hyperjump/semblance/internal/model"
	"github.com/hyperjump/semblance/internal/tokenize"
)

// NewLoader returns a LoadFunc that resolves artifacts through res and backs
// the handle with the ONNX encoder. Any failure aborts the load with no
// partial state left behind.
func NewLoader(res *hub.Resolver, opts encoder.Options, logger *zap.Logger) LoadFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(modelID string, useCPU bool) (*Handle, error) {
		files, err := res.Resolve(context.Background(), modelID)
		if err != nil {
			return nil, fmt.Errorf("resolve model artifacts: %w", err)
		}

		cfg, err := model.LoadConfig(files.Config)
		if err != nil {
			return nil, err
		}

		adapter, err := tokenize.FromFile(files.Tokenizer)
		if err != nil {
			return nil, err
		}

		encOpts := opts
		encOpts.UseCPU = useCPU
		enc, err := encoder.NewONNXEncoder(files.Weights, cfg.HiddenSize, encOpts)
		if err != nil {
			return nil, fmt.Errorf("load encoder: %w", err)
		}

		logger.Debug("model loaded",
			zap.String("model", files.ModelID),
			zap.String("weights", files.Weights),
			zap.String("format", string(files.Format)),
		)
		return &Handle{
			ModelID:   files.ModelID,
			Device:    enc.Device(),
			Format:    files.Format,
			Config:    cfg,
			Encoder:   enc,
			Tokenizer: adapter,
		}, nil
	}
}
