// Package domain holds the grading data model shared by the parser, the
// aligners, the persona panel, the report renderer and the workflow:
// questions, aligned answers, opinions, consensus results, reports and the
// events emitted while grading.
//
// Types that cross a Temporal activity boundary carry JSON tags and are
// validated with go-playground/validator before use.
package domain

import (
	"github.com/go-playground/validator/v10"
)

// validate is the package-level validator instance used for struct validation.
var validate = validator.New(validator.WithRequiredStructEnabled())
