package pvp

import (
	"encoding/json"
	"errors"
)

// MaxScore bounds each side's score in a reported result.
const MaxScore = 20

// Result validation errors.
var (
	ErrInvalidResultJSON = errors.New("result is not a valid JSON object")
	ErrMissingHomeScore  = errors.New("result is missing an integer home score")
	ErrMissingAwayScore  = errors.New("result is missing an integer away score")
	ErrNegativeScore     = errors.New("negative score")
	ErrScoreOutOfRange   = errors.New("score out of range")
)

// ValidateResult checks that resultJSON is a JSON object with integer
// home/away scores, each within [0, MaxScore].
func ValidateResult(resultJSON string) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(resultJSON), &raw); err != nil {
		return ErrInvalidResultJSON
	}

	home, err := intField(raw, "home")
	if err != nil {
		return ErrMissingHomeScore
	}
	away, err := intField(raw, "away")
	if err != nil {
		return ErrMissingAwayScore
	}

	if home < 0 || away < 0 {
		return ErrNegativeScore
	}
	if home > MaxScore || away > MaxScore {
		return ErrScoreOutOfRange
	}
	return nil
}

func intField(raw map[string]json.RawMessage, key string) (int64, error) {
	v, ok := raw[key]
	if !ok {
		return 0, errors.New("missing field")
	}
	var n int64
	if err := json.Unmarshal(v, &n); err != nil {
		return 0, err
	}
	return n, nil
}
