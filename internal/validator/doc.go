// Package validator checks fixture integrity and manifest structure.
//
// Validation never mutates a database and only reads the snapshot file, so
// it is always safe to retry and to run concurrently.
//
// Expected problems are returned as data in a ValidationResult, with one
// Finding per problem:
//
//	r := validator.New().ValidateFixture("fixtures/test-100")
//	for _, f := range r.Findings {
//	    fmt.Println(f.Severity, f.Code, f.Message)
//	}
//
// Callers that must refuse an invalid fixture convert the result with Err,
// which yields a typed error from internal/errors.
//
// CachedValidator adds a TTL cache in front of ValidateFixture for test
// suites that load the same fixture many times.
package validator
