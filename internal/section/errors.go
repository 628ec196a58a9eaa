package section

import "errors"

// Custom section service errors
var (
	// ErrSectionNotFound indicates the requested section does not exist
	ErrSectionNotFound = errors.New("section not found")

	// ErrDuplicateSectionName indicates a section with the same name already exists
	ErrDuplicateSectionName = errors.New("section name already exists")

	// ErrInvalidName indicates an empty or overlong section name
	ErrInvalidName = errors.New("section name must be 1-255 characters")

	// ErrInvalidItem indicates a playlist item failed validation
	ErrInvalidItem = errors.New("invalid playlist item")
)

// IsSectionNotFound checks if the error is a section not found error
func IsSectionNotFound(err error) bool {
	return errors.Is(err, ErrSectionNotFound)
}

// IsDuplicateName checks if the error is a duplicate section name error
func IsDuplicateName(err error) bool {
	return errors.Is(err, ErrDuplicateSectionName)
}

// IsInvalidItem checks if the error is a playlist validation error
func IsInvalidItem(err error) bool {
	return errors.Is(err, ErrInvalidItem)
}
