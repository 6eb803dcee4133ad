package numbering

import (
	"context"
	"fmt"

	"invoicing-backend/internal/apperr"
	"invoicing-backend/internal/models"

	"github.com/google/uuid"
)

var prefixes = map[models.DocumentType]string{
	models.TypeQuote:      "DEVI",
	models.TypeInvoice:    "FACT",
	models.TypeCreditNote: "AVOIR",
}

// Sequencer hands out the next counter value for a key. Calls for the same
// key must be serialized by the implementation.
type Sequencer interface {
	NextSequence(ctx context.Context, companyID uuid.UUID, docType models.DocumentType, year int) (int64, error)
}

func Prefix(docType models.DocumentType) (string, error) {
	p, ok := prefixes[docType]
	if !ok {
		return "", apperr.Invalid("type", fmt.Sprintf("unknown document type %q", docType))
	}
	return p, nil
}

// Format renders PREFIX-YEAR-SEQ with at least three digits of sequence.
func Format(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%03d", prefix, year, seq)
}

type Service struct {
	seq Sequencer
}

func New(seq Sequencer) *Service {
	return &Service{seq: seq}
}

// NextNumber allocates the next document number. Run it inside the
// transaction that inserts the document so a failed insert releases it.
func (s *Service) NextNumber(ctx context.Context, companyID uuid.UUID, docType models.DocumentType, year int) (string, error) {
	prefix, err := Prefix(docType)
	if err != nil {
		return "", err
	}
	n, err := s.seq.NextSequence(ctx, companyID, docType, year)
	if err != nil {
		return "", fmt.Errorf("allocate %s number: %w", prefix, err)
	}
	return Format(prefix, year, n), nil
}
