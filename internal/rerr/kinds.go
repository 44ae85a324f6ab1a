// Package rerr provides the structured error type used across the engine.
//
// Every error kind maps to a Category and a default Severity, the same way
// the teacher derives a category/severity pair from a numeric code prefix;
// here the kind itself is the classifier since it is already a closed,
// named set.
package rerr

// Kind is the closed set of error kinds the engine reports.
type Kind string

const (
	KindIO                   Kind = "io"
	KindSerialization        Kind = "serialization"
	KindStorage              Kind = "storage"
	KindIndexing             Kind = "indexing"
	KindSearch               Kind = "search"
	KindParser               Kind = "parser"
	KindEmbedding            Kind = "embedding"
	KindConfig               Kind = "config"
	KindInvalidQuery         Kind = "invalid-query"
	KindFileTooLarge         Kind = "file-too-large"
	KindUnsupportedLanguage  Kind = "unsupported-language"
	KindDatabase             Kind = "database"
	KindNetwork              Kind = "network"
	KindModelNotFound        Kind = "model-not-found"
	KindOther                Kind = "other"
)

// Category groups kinds for coarse-grained handling.
type Category string

const (
	CategoryConfig     Category = "config"
	CategoryIO         Category = "io"
	CategoryNetwork    Category = "network"
	CategoryValidation Category = "validation"
	CategoryInternal   Category = "internal"
)

// Severity classifies how serious an error is: storage and database errors
// are fatal, network and model-not-found errors are warnings, and every
// other kind is an error.
type Severity string

const (
	SeverityFatal   Severity = "fatal"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

func categoryFor(k Kind) Category {
	switch k {
	case KindConfig:
		return CategoryConfig
	case KindIO, KindFileTooLarge, KindStorage, KindDatabase, KindSerialization:
		return CategoryIO
	case KindNetwork, KindModelNotFound:
		return CategoryNetwork
	case KindInvalidQuery, KindUnsupportedLanguage:
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

func severityFor(k Kind) Severity {
	switch k {
	case KindStorage, KindDatabase:
		return SeverityFatal
	case KindNetwork, KindModelNotFound:
		return SeverityWarning
	default:
		return SeverityError
	}
}

func retryableFor(k Kind) bool {
	switch k {
	case KindNetwork, KindModelNotFound:
		return true
	default:
		return false
	}
}
