package document

import (
	"fmt"
	"regexp"
	"strings"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Field limits.
const (
	MaxIDLength   = 256
	MaxTextLength = 65536
)

// Fields is the raw corpus record as read from a source file.
type Fields struct {
	DocumentID         string `yaml:"document_id"`
	Category           string `yaml:"category"`
	Question           string `yaml:"question"`
	Answer             string `yaml:"answer"`
	AnswerInstructions string `yaml:"answer_instructions"`
	TenantID           string `yaml:"tenant_id"`
	ProjectID          string `yaml:"project_id"`
	ProjectName        string `yaml:"project_name"`
	AuthorizationID    string `yaml:"authorization_id"`
}

// Document is an immutable question/answer record of the corpus.
type Document struct {
	id                 string
	category           string
	question           string
	answer             string
	answerInstructions string
	tenantID           string
	projectID          string
	projectName        string
	authorizationID    string
}

// New validates f and creates a Document.
// document_id, category, question, answer and tenant_id are required.
// An authorization id is only meaningful inside a project.
func New(f Fields) (Document, error) {
	f = trimFields(f)

	if f.DocumentID == "" {
		return Document{}, fmt.Errorf("document_id is required")
	}
	if len(f.DocumentID) > MaxIDLength {
		return Document{}, fmt.Errorf("document_id too long (max %d)", MaxIDLength)
	}
	if !idRegex.MatchString(f.DocumentID) {
		return Document{}, fmt.Errorf("document_id %q must be alphanumeric with underscores and hyphens", f.DocumentID)
	}
	required := map[string]string{
		"category":  f.Category,
		"question":  f.Question,
		"answer":    f.Answer,
		"tenant_id": f.TenantID,
	}
	for _, name := range []string{"category", "question", "answer", "tenant_id"} {
		if required[name] == "" {
			return Document{}, fmt.Errorf("document %s: %s is required", f.DocumentID, name)
		}
	}
	for name, v := range map[string]string{
		"question": f.Question, "answer": f.Answer, "answer_instructions": f.AnswerInstructions,
	} {
		if len(v) > MaxTextLength {
			return Document{}, fmt.Errorf("document %s: %s too long (max %d bytes)", f.DocumentID, name, MaxTextLength)
		}
	}
	if f.AuthorizationID != "" && f.ProjectID == "" {
		return Document{}, fmt.Errorf("document %s: authorization_id requires project_id", f.DocumentID)
	}

	return Document{
		id:                 f.DocumentID,
		category:           f.Category,
		question:           f.Question,
		answer:             f.Answer,
		answerInstructions: f.AnswerInstructions,
		tenantID:           f.TenantID,
		projectID:          f.ProjectID,
		projectName:        f.ProjectName,
		authorizationID:    f.AuthorizationID,
	}, nil
}

func trimFields(f Fields) Fields {
	f.DocumentID = strings.TrimSpace(f.DocumentID)
	f.Category = strings.TrimSpace(f.Category)
	f.Question = strings.TrimSpace(f.Question)
	f.Answer = strings.TrimSpace(f.Answer)
	f.AnswerInstructions = strings.TrimSpace(f.AnswerInstructions)
	f.TenantID = strings.TrimSpace(f.TenantID)
	f.ProjectID = strings.TrimSpace(f.ProjectID)
	f.ProjectName = strings.TrimSpace(f.ProjectName)
	f.AuthorizationID = strings.TrimSpace(f.AuthorizationID)
	return f
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Category returns the topic category.
func (d *Document) Category() string { return d.category }

// Question returns the canonical question.
func (d *Document) Question() string { return d.question }

// Answer returns the answer text.
func (d *Document) Answer() string { return d.answer }

// AnswerInstructions returns extra guidance for composing a reply, or "".
func (d *Document) AnswerInstructions() string { return d.answerInstructions }

// TenantID returns the owning tenant (source system).
func (d *Document) TenantID() string { return d.tenantID }

// ProjectID returns the scope the document belongs to, or "" for public documents.
func (d *Document) ProjectID() string { return d.projectID }

// ProjectName returns the display name of the project, or "".
func (d *Document) ProjectName() string { return d.projectName }

// AuthorizationID returns the authorization required to see the document, or "".
func (d *Document) AuthorizationID() string { return d.authorizationID }

// EmbeddingText is the text the document vector is computed from: question and answer.
func (d *Document) EmbeddingText() string { return d.question + " " + d.answer }

// Validate checks a whole corpus for duplicate ids.
func Validate(docs []Document) error {
	seen := make(map[string]struct{}, len(docs))
	for i := range docs {
		id := docs[i].ID()
		if _, ok := seen[id]; ok {
			return fmt.Errorf("duplicate document_id %q", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
