// Package records reads verification records from JSON files. Documents
// are checked against an embedded JSON schema before decoding.
package records

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/MNasiifu/automobile-association-sub000/permit"
)

//go:embed record.schema.json
var recordSchema []byte

var schemaLoader = gojsonschema.NewBytesLoader(recordSchema)

// Schema returns the record JSON schema.
func Schema() []byte { return recordSchema }

// SchemaError lists every schema violation of a document.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "record does not match schema: " + strings.Join(e.Problems, "; ")
}

type fileRecord struct {
	ID               string  `json:"id"`
	GivenNames       string  `json:"given_names"`
	Surname          string  `json:"surname"`
	PassportNumber   string  `json:"passport_number"`
	PermittedClasses string  `json:"permitted_classes"`
	IssueDate        string  `json:"issue_date"`
	ExpiryDate       string  `json:"expiry_date"`
	PhotoReference   *string `json:"photo_reference"`
	Found            *bool   `json:"found"`
}

// Parse validates and decodes one record. Found defaults to true.
func Parse(data []byte) (permit.VerificationRecord, error) {
	if err := validate(data); err != nil {
		return permit.VerificationRecord{}, err
	}
	var fr fileRecord
	if err := json.Unmarshal(data, &fr); err != nil {
		return permit.VerificationRecord{}, fmt.Errorf("decode record: %w", err)
	}
	return fr.record()
}

// ParseList validates and decodes a JSON array of records.
func ParseList(data []byte) ([]permit.VerificationRecord, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode record list: %w", err)
	}
	out := make([]permit.VerificationRecord, 0, len(raw))
	for i, item := range raw {
		rec, err := Parse(item)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReadFile parses the record stored at path.
func ReadFile(path string) (permit.VerificationRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return permit.VerificationRecord{}, err
	}
	return Parse(data)
}

// ReadListFile parses the record list stored at path.
func ReadListFile(path string) ([]permit.VerificationRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseList(data)
}

func validate(data []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate record: %w", err)
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return &SchemaError{Problems: problems}
}

func (fr fileRecord) record() (permit.VerificationRecord, error) {
	rec := permit.VerificationRecord{
		ID:               strings.TrimSpace(fr.ID),
		GivenNames:       fr.GivenNames,
		Surname:          fr.Surname,
		PassportNumber:   fr.PassportNumber,
		PermittedClasses: fr.PermittedClasses,
		PhotoReference:   fr.PhotoReference,
		Found:            fr.Found == nil || *fr.Found,
	}
	var err error
	if rec.IssueDate, err = parseDate(fr.IssueDate); err != nil {
		return rec, fmt.Errorf("issue_date: %w", err)
	}
	if rec.ExpiryDate, err = parseDate(fr.ExpiryDate); err != nil {
		return rec, fmt.Errorf("expiry_date: %w", err)
	}
	return rec, nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
