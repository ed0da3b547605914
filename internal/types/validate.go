package types

import "github.com/go-playground/validator/v10"

// validate caches struct metadata across requests; it is safe for concurrent use.
var validate = validator.New()

// Validate checks field-level constraints. Store existence is checked by the caller.
func (r *ResolveRequest) Validate() error {
	return validate.Struct(r)
}
