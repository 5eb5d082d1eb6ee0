package services

import (
	"encoding/json"
	"fmt"

	"github.com/kramikkk/vitalink-ai/internal/apperr"
	"github.com/kramikkk/vitalink-ai/internal/ml"
	"github.com/kramikkk/vitalink-ai/internal/types"
)

const artifactCodecVersion = 1

type artifactEnvelope struct {
	Version int             `json:"version"`
	Payload json.RawMessage `json:"payload"`
}

func encodeArtifact(v interface{}) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(artifactEnvelope{Version: artifactCodecVersion, Payload: payload})
}

func decodeEnvelope(blob []byte) (json.RawMessage, error) {
	var env artifactEnvelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInferenceCorruption, err)
	}
	if env.Version != artifactCodecVersion {
		return nil, fmt.Errorf("%w: unsupported artifact version %d", apperr.ErrInferenceCorruption, env.Version)
	}
	return env.Payload, nil
}

// decodeArtifactPair rebuilds the (scaler, forest) pair from one stored
// generation. The pair is validated as a unit: a forest whose feature count
// does not match its scaler is the invariant violation the single-row store
// exists to prevent, so it is rejected as corruption.
func decodeArtifactPair(artifact *types.ModelArtifact) (*ml.Scaler, *ml.Forest, error) {
	scalerRaw, err := decodeEnvelope(artifact.ScalerBlob)
	if err != nil {
		return nil, nil, err
	}
	forestRaw, err := decodeEnvelope(artifact.ForestBlob)
	if err != nil {
		return nil, nil, err
	}

	var scaler ml.Scaler
	if err := json.Unmarshal(scalerRaw, &scaler); err != nil {
		return nil, nil, fmt.Errorf("%w: scaler: %v", apperr.ErrInferenceCorruption, err)
	}
	var forest ml.Forest
	if err := json.Unmarshal(forestRaw, &forest); err != nil {
		return nil, nil, fmt.Errorf("%w: forest: %v", apperr.ErrInferenceCorruption, err)
	}

	if scaler.Dims() == 0 || len(forest.Trees) == 0 {
		return nil, nil, fmt.Errorf("%w: empty artifact", apperr.ErrInferenceCorruption)
	}
	if forest.Dims != scaler.Dims() {
		return nil, nil, fmt.Errorf("%w: scaler has %d features, forest has %d", apperr.ErrInferenceCorruption, scaler.Dims(), forest.Dims)
	}

	return &scaler, &forest, nil
}
