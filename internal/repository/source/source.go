// Package source reads the entity catalog, the corpus and evaluation datasets
// from YAML files. JSON files are accepted too.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/qadex/internal/domain"
	"github.com/kailas-cloud/qadex/internal/domain/catalog"
	domdoc "github.com/kailas-cloud/qadex/internal/domain/document"
	"github.com/kailas-cloud/qadex/internal/domain/evaluation"
)

type entityRecord struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type catalogFile struct {
	Entities []entityRecord `yaml:"entities"`
}

type corpusFile struct {
	Documents []domdoc.Fields `yaml:"documents"`
}

type datasetFile struct {
	Cases []evaluation.Case `yaml:"cases"`
}

type recognitionFile struct {
	Cases []evaluation.RecognitionCase `yaml:"cases"`
}

// CatalogFile loads the entity catalog from a file. It is re-read on every Load.
type CatalogFile struct {
	path string
}

// NewCatalogFile creates a catalog source for path.
func NewCatalogFile(path string) *CatalogFile {
	return &CatalogFile{path: path}
}

// Path returns the catalog file path.
func (f *CatalogFile) Path() string { return f.path }

// Load reads and validates the catalog.
func (f *CatalogFile) Load(_ context.Context) ([]catalog.Entity, error) {
	data, err := readFile(f.path)
	if err != nil {
		return nil, err
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes catalog entities. Ids must be unique UUIDs.
func ParseCatalog(data []byte) ([]catalog.Entity, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Entities) == 0 {
		return nil, domain.ErrCatalogEmpty
	}

	entities := make([]catalog.Entity, 0, len(file.Entities))
	for i, rec := range file.Entities {
		e, err := catalog.NewEntity(rec.ID, rec.Name)
		if err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		entities = append(entities, e)
	}
	if err := catalog.ValidateUnique(entities); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return entities, nil
}

// LoadCorpus reads and validates a corpus file.
func LoadCorpus(path string) ([]domdoc.Document, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCorpus(data)
}

// ParseCorpus decodes corpus documents and rejects invalid or duplicate records.
func ParseCorpus(data []byte) ([]domdoc.Document, error) {
	var file corpusFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}

	docs := make([]domdoc.Document, 0, len(file.Documents))
	for i, f := range file.Documents {
		d, err := domdoc.New(f)
		if err != nil {
			return nil, fmt.Errorf("corpus record %d: %w: %w", i, domain.ErrInvalidDocument, err)
		}
		docs = append(docs, d)
	}
	if err := domdoc.Validate(docs); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidDocument, err)
	}
	return docs, nil
}

// LoadDataset reads an evaluation dataset.
func LoadDataset(path string) ([]evaluation.Case, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDataset(data)
}

// ParseDataset decodes evaluation cases.
func ParseDataset(data []byte) ([]evaluation.Case, error) {
	var file datasetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	for i := range file.Cases {
		if err := file.Cases[i].Validate(); err != nil {
			return nil, fmt.Errorf("dataset case %d: %w", i, err)
		}
	}
	return file.Cases, nil
}

// LoadRecognitionDataset reads an entity recognition dataset.
func LoadRecognitionDataset(path string) ([]evaluation.RecognitionCase, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRecognitionDataset(data)
}

// ParseRecognitionDataset decodes entity recognition cases.
func ParseRecognitionDataset(data []byte) ([]evaluation.RecognitionCase, error) {
	var file recognitionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse recognition dataset: %w", err)
	}
	if len(file.Cases) == 0 {
		return nil, fmt.Errorf("recognition dataset has no cases")
	}
	for i := range file.Cases {
		if err := file.Cases[i].Validate(); err != nil {
			return nil, fmt.Errorf("recognition case %d: %w", i, err)
		}
	}
	return file.Cases, nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
