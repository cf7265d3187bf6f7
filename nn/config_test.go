package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tensorforge/core/errs"
)

type sampleLayerConfig struct {
	InputDim  int     `validate:"required,gt=0"`
	OutputDim int     `validate:"required,gt=0"`
	Dropout   float32 `validate:"gte=0,lt=1"`
}

func TestValidateConfigAcceptsWellFormedConfig(t *testing.T) {
	cfg := sampleLayerConfig{InputDim: 8, OutputDim: 16, Dropout: 0.1}
	assert.NoError(t, ValidateConfig(cfg))
}

func TestValidateConfigRejectsZeroDims(t *testing.T) {
	cfg := sampleLayerConfig{InputDim: 0, OutputDim: 16, Dropout: 0.1}
	err := ValidateConfig(cfg)
	assert.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindArgumentInvalid))
}

func TestValidateConfigRejectsOutOfRangeDropout(t *testing.T) {
	cfg := sampleLayerConfig{InputDim: 8, OutputDim: 16, Dropout: 1.5}
	err := ValidateConfig(cfg)
	assert.Error(t, err)
}
