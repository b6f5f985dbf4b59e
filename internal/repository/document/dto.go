package document

import (
	"encoding/binary"
	"math"

	domdoc "github.com/kailas-cloud/qadex/internal/domain/document"
)

// buildHashFields converts a domain Document into a flat map[string]string for HSET.
// Empty optional fields are left out so the index sees them as missing.
func buildHashFields(doc *domdoc.Document, vector []float32) map[string]string {
	m := map[string]string{
		domdoc.FieldDocumentID: doc.ID(),
		domdoc.FieldCategory:   doc.Category(),
		domdoc.FieldQuestion:   doc.Question(),
		domdoc.FieldAnswer:     doc.Answer(),
		domdoc.FieldTenantID:   doc.TenantID(),
		domdoc.FieldEmbedding:  vectorToBytes(vector),
	}
	optional := map[string]string{
		domdoc.FieldAnswerInstructions: doc.AnswerInstructions(),
		domdoc.FieldProjectID:          doc.ProjectID(),
		domdoc.FieldProjectName:        doc.ProjectName(),
		domdoc.FieldAuthorizationID:    doc.AuthorizationID(),
	}
	for k, v := range optional {
		if v != "" {
			m[k] = v
		}
	}
	return m
}

// parseHashFields converts a flat hash map back into a domain Document.
func parseHashFields(id string, m map[string]string) (domdoc.Document, error) {
	return domdoc.New(domdoc.Fields{
		DocumentID:         id,
		Category:           m[domdoc.FieldCategory],
		Question:           m[domdoc.FieldQuestion],
		Answer:             m[domdoc.FieldAnswer],
		AnswerInstructions: m[domdoc.FieldAnswerInstructions],
		TenantID:           m[domdoc.FieldTenantID],
		ProjectID:          m[domdoc.FieldProjectID],
		ProjectName:        m[domdoc.FieldProjectName],
		AuthorizationID:    m[domdoc.FieldAuthorizationID],
	})
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
