package cachekey

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/thoas/go-funk"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/tesserae/tess-jobs/internal/store/model"
)

var (
	UnitTypes      = []string{"line", "phrase"}
	Features       = []string{"form", "lemmata", "semantic", "lemmata + semantic", "sound"}
	FreqBases      = []string{"texts", "corpus"}
	DistanceBases  = []string{"span", "span-target", "span-source", "frequency", "frequency-target", "frequency-source"}
	defaultFeature = "lemmata"
)

// Parameters is the typed parameter set of one job type. Every implementation knows how to
// validate itself and how to produce its canonical form.
type Parameters interface {
	JobType() model.JobType
	normalize() (Parameters, *multierror.Error)
}

// NormalParameters define a search between one source text and one target text.
type NormalParameters struct {
	Source        string   `json:"source"`
	Target        string   `json:"target"`
	UnitType      string   `json:"unit_type"`
	Feature       string   `json:"feature"`
	Stopwords     []string `json:"stopwords"`
	FreqBasis     string   `json:"freq_basis"`
	MaxDistance   int      `json:"max_distance"`
	DistanceBasis string   `json:"distance_basis"`
}

func (NormalParameters) JobType() model.JobType {
	return model.JobTypeNormal
}

func (p NormalParameters) normalize() (Parameters, *multierror.Error) {
	var errs *multierror.Error
	out := NormalParameters{
		UnitType:      normalizeScalar(p.UnitType),
		Feature:       normalizeScalar(p.Feature),
		FreqBasis:     normalizeScalar(p.FreqBasis),
		MaxDistance:   p.MaxDistance,
		DistanceBasis: normalizeScalar(p.DistanceBasis),
		Stopwords:     normalizeWords(p.Stopwords),
	}

	if id, ok := normalizeTextID(p.Source); ok {
		out.Source = id
	} else {
		errs = multierror.Append(errs, NewErrInvalidParameter("source", p.Source))
	}
	if id, ok := normalizeTextID(p.Target); ok {
		out.Target = id
	} else {
		errs = multierror.Append(errs, NewErrInvalidParameter("target", p.Target))
	}

	if out.Feature == "" {
		out.Feature = defaultFeature
	}
	errs = checkOneOf(errs, "unit_type", out.UnitType, UnitTypes)
	errs = checkOneOf(errs, "feature", out.Feature, Features)
	if out.FreqBasis != "" {
		errs = checkOneOf(errs, "freq_basis", out.FreqBasis, FreqBases)
	}
	if out.DistanceBasis != "" {
		errs = checkOneOf(errs, "distance_basis", out.DistanceBasis, DistanceBases)
	}
	if out.MaxDistance < 0 {
		errs = multierror.Append(errs, NewErrInvalidParameter("max_distance", fmt.Sprint(out.MaxDistance)))
	}

	return out, errs
}

// MultiParameters define a multitext search run over the results of a completed normal
// search against a selection of further texts.
type MultiParameters struct {
	BaseJobID string   `json:"parallels_uuid"`
	TextIDs   []string `json:"text_ids"`
	UnitType  string   `json:"unit_type"`
}

func (MultiParameters) JobType() model.JobType {
	return model.JobTypeMulti
}

func (p MultiParameters) normalize() (Parameters, *multierror.Error) {
	var errs *multierror.Error
	out := MultiParameters{UnitType: normalizeScalar(p.UnitType)}

	if id, ok := NormalizeJobID(p.BaseJobID); ok {
		out.BaseJobID = id
	} else {
		errs = multierror.Append(errs, NewErrInvalidParameter("parallels_uuid", p.BaseJobID))
	}

	if len(p.TextIDs) == 0 {
		errs = multierror.Append(errs, NewErrEmptySelection("text_ids"))
	}
	ids, malformed := normalizeTextIDs(p.TextIDs)
	if len(malformed) > 0 {
		errs = multierror.Append(errs, NewErrInvalidParameter("text_ids", malformed...))
	}
	out.TextIDs = ids

	errs = checkOneOf(errs, "unit_type", out.UnitType, UnitTypes)
	return out, errs
}

// Unmarshal decodes parameters stored or received as JSON into the variant for jobType.
func Unmarshal(jobType model.JobType, data []byte) (Parameters, error) {
	switch jobType {
	case model.JobTypeNormal:
		var p NormalParameters
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case model.JobTypeMulti:
		var p MultiParameters
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown job type %q", jobType)
	}
}

// NormalizeJobID accepts a job id with or without dashes and in any case and returns its
// 32 character lowercase form.
func NormalizeJobID(raw string) (string, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	return strings.ReplaceAll(id.String(), "-", ""), true
}

func normalizeTextID(raw string) (string, bool) {
	oid, err := bson.ObjectIDFromHex(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return "", false
	}
	return oid.Hex(), true
}

// normalizeTextIDs returns the sorted, de-duplicated well formed ids and every malformed
// value in input order.
func normalizeTextIDs(raw []string) ([]string, []string) {
	ids := make([]string, 0, len(raw))
	var malformed []string
	for _, r := range raw {
		id, ok := normalizeTextID(r)
		if !ok {
			malformed = append(malformed, r)
			continue
		}
		ids = append(ids, id)
	}
	ids = funk.UniqString(ids)
	sort.Strings(ids)
	return ids, malformed
}

func normalizeScalar(v string) string {
	return strings.ToLower(strings.Join(strings.Fields(v), " "))
}

func normalizeWords(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if n := normalizeScalar(w); n != "" {
			out = append(out, n)
		}
	}
	out = funk.UniqString(out)
	sort.Strings(out)
	return out
}

func checkOneOf(errs *multierror.Error, name, value string, accepted []string) *multierror.Error {
	if funk.ContainsString(accepted, value) {
		return errs
	}
	return multierror.Append(errs, NewErrInvalidParameter(name, value))
}
