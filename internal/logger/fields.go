package logger

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/utils"
)

const (
	// FieldProvider is the structured log field key for the AI provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the AI model identifier.
	FieldModel = "ai_model"
	// FieldQueryPreview holds a truncated copy of the user query.
	FieldQueryPreview = "query_preview"
	// FieldQueryLength holds the rune length of the user query.
	FieldQueryLength = "query_length"
	// FieldCase is the benchmark case id.
	FieldCase = "case"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts key/value pairs into zap fields, trimming whitespace
// and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to the logger. A nil logger becomes a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// CommonFields describes the AI provider and model. Empty values are dropped.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

// WithCommonFields attaches the common AI fields to the logger.
func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}

// QueryFields describes a user query without logging it in full.
func QueryFields(query string, limit int) []zap.Field {
	query = strings.TrimSpace(query)
	fields := StringFields(StringField{Key: FieldQueryPreview, Value: utils.TruncateForLog(query, limit)})
	return append(fields, zap.Int(FieldQueryLength, utf8.RuneCountInString(query)))
}
