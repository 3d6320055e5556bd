package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/tesserae/tess-jobs/internal/store/model"
)

// Key is the canonical fingerprint of a job's defining parameters.
type Key string

func (k Key) String() string {
	return string(k)
}

type keyPayload struct {
	JobType    model.JobType `json:"job_type"`
	Parameters Parameters    `json:"parameters"`
}

// Resolve validates p and derives its cache key. Every validation problem is reported in a
// single *ValidationError. The canonical parameters returned are the ones to persist.
func Resolve(p Parameters) (Key, Parameters, error) {
	if p == nil {
		return "", nil, errors.New("no parameters given")
	}

	canonical, errs := p.normalize()
	if err := newValidationError(errs); err != nil {
		return "", nil, err
	}

	payload, err := json.Marshal(keyPayload{JobType: canonical.JobType(), Parameters: canonical})
	if err != nil {
		return "", nil, err
	}

	sum := sha256.Sum256(payload)
	return Key(hex.EncodeToString(sum[:])), canonical, nil
}
