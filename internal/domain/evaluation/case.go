// Package evaluation holds ground-truth cases for retrieval quality checks.
package evaluation

import (
	"fmt"
	"strings"
)

// Case is one labelled question: retrieval should return ExpectedDocumentID.
type Case struct {
	Question           string   `yaml:"question"`
	ExpectedDocumentID string   `yaml:"expected_document_id"`
	TenantID           string   `yaml:"tenant_id"`
	ScopeID            string   `yaml:"scope_id"`
	AuthorizationIDs   []string `yaml:"authorization_ids"`
	SourceSystem       string   `yaml:"source_system"`
}

// Validate trims c in place and checks required fields.
func (c *Case) Validate() error {
	c.Question = strings.TrimSpace(c.Question)
	c.ExpectedDocumentID = strings.TrimSpace(c.ExpectedDocumentID)
	c.TenantID = strings.TrimSpace(c.TenantID)
	c.ScopeID = strings.TrimSpace(c.ScopeID)
	if c.Question == "" {
		return fmt.Errorf("question is required")
	}
	if c.ExpectedDocumentID == "" {
		return fmt.Errorf("expected_document_id is required for %q", c.Question)
	}
	return nil
}

// RecognitionCase is one labelled text for entity recognition. An empty
// ExpectedEntityID means the text names no catalog entity.
type RecognitionCase struct {
	Text             string `yaml:"text"`
	ExpectedEntityID string `yaml:"expected_entity_id"`
}

// Validate trims c in place and checks required fields.
func (c *RecognitionCase) Validate() error {
	c.Text = strings.TrimSpace(c.Text)
	c.ExpectedEntityID = strings.TrimSpace(c.ExpectedEntityID)
	if c.Text == "" {
		return fmt.Errorf("text is required")
	}
	return nil
}
