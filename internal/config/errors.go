package config

import "errors"

// Common errors returned while loading a job configuration. All of them are
// fatal: a crawl never starts from a malformed job description.
var (
	// ErrNoStartURLs indicates the configuration has no start_urls.
	ErrNoStartURLs = errors.New("at least one start_url is required")
	// ErrInvalidStartURL indicates a start URL is not absolute.
	ErrInvalidStartURL = errors.New("start_url must be an absolute URL")
	// ErrNoFields indicates the configuration extracts nothing.
	ErrNoFields = errors.New("at least one extract_fields entry is required")
	// ErrInvalidSetting indicates a setting is out of its documented range.
	ErrInvalidSetting = errors.New("invalid setting")
	// ErrUnknownKey indicates the configuration contains a key outside the schema.
	ErrUnknownKey = errors.New("unknown configuration key")
	// ErrInvalidPrivacy indicates an unsupported pseudonymise directive.
	ErrInvalidPrivacy = errors.New("invalid privacy directive")
	// ErrInvalidValidation indicates a malformed validation block.
	ErrInvalidValidation = errors.New("invalid validation block")
)
