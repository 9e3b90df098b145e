package ragengine

import "errors"

var (
	// ErrLLMUnavailable is returned when the LLM provider is unreachable.
	ErrLLMUnavailable = errors.New("svenskrag: LLM provider unavailable")

	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("svenskrag: store is closed")

	// ErrNoResults is returned when retrieval yields no matching chunks at
	// all, before grading ever runs. Distinct from a refusal, which means
	// candidates existed but none survived grading.
	ErrNoResults = errors.New("svenskrag: no results found")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("svenskrag: invalid configuration")
)
