package cli

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/roach88/concord/internal/resolve"
)

//go:embed batch.cue
var batchSchema string

// BatchResult contains the operations decoded from a batch file.
type BatchResult struct {
	Operations []resolve.Operation
	Path       string
}

// LoadError represents an error that occurred during batch loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric    = "E001" // Generic/unknown error
	ErrCodeReadFailed = "E002" // Batch file read error
	ErrCodeBadJSON    = "E003" // JSON parse failed
	ErrCodeSchema     = "E004" // Schema violation
	ErrCodeNotFound   = "E005" // Path not found
	ErrCodeBadValue   = "E006" // Well-formed JSON with an undecodable value
)

// LoadBatch reads a batch file, checks it against the embedded CUE
// schema, and decodes the operations. Schema violations come back one
// error per violation so callers can report all of them at once.
func LoadBatch(path string) (*BatchResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("batch file not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing batch file: %v", err)}}
	}
	if info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a file: %s", path)}}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("reading batch file: %v", err)}}
	}

	if errs := validateBatch(path, data); len(errs) > 0 {
		return nil, errs
	}

	var doc struct {
		Operations []resolve.Operation `json:"operations"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		// The schema passed, so this is a value the schema cannot see,
		// like a timestamp that is not RFC 3339.
		return nil, []error{&LoadError{Code: ErrCodeBadValue, Message: fmt.Sprintf("decoding operations: %v", err)}}
	}
	if len(doc.Operations) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeGeneric, Message: "batch contains no operations"}}
	}

	return &BatchResult{Operations: doc.Operations, Path: path}, nil
}

// validateBatch unifies the batch document with the embedded schema and
// collects every violation.
func validateBatch(path string, data []byte) []error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(batchSchema, cue.Filename("batch.cue"))
	if err := schema.Err(); err != nil {
		return []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("compiling batch schema: %v", err)}}
	}

	expr, err := cuejson.Extract(path, data)
	if err != nil {
		return toLoadErrors(ErrCodeBadJSON, err)
	}

	value := ctx.BuildExpr(expr)
	if err := value.Err(); err != nil {
		return toLoadErrors(ErrCodeBadJSON, err)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return toLoadErrors(ErrCodeSchema, err)
	}
	return nil
}

// toLoadErrors expands a CUE error into one LoadError per underlying
// violation, keeping source positions.
func toLoadErrors(code string, err error) []error {
	list := cueerrors.Errors(err)
	if len(list) == 0 {
		return []error{&LoadError{Code: code, Message: err.Error()}}
	}
	errs := make([]error, 0, len(list))
	for _, e := range list {
		errs = append(errs, &LoadError{
			Code:    code,
			Message: e.Error(),
			Pos:     e.Position(),
		})
	}
	return errs
}

// lineOf extracts a line number from a CUE position, zero when unknown.
func lineOf(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}
