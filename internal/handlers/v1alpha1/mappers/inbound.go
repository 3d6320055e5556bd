package mappers

import (
	"encoding/json"
	"fmt"

	"github.com/tesserae/tess-jobs/internal/cachekey"
	"github.com/tesserae/tess-jobs/internal/store/model"
)

// ParametersFromApi decodes a submission body into the parameters of jobType.
func ParametersFromApi(jobType model.JobType, body []byte) (cachekey.Parameters, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("empty body")
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("body is not valid json")
	}
	return cachekey.Unmarshal(jobType, body)
}
