package webhook

import "github.com/go-playground/validator/v10"

// validate is a package-level, concurrency-safe validator instance.
var validate = validator.New(validator.WithRequiredStructEnabled())
