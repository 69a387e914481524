package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
	"github.com/google/uuid"
)

// DocumentInput describes an uploaded document whose bytes are already stored.
type DocumentInput struct {
	OriginalFilename string `json:"original_filename"`
	StorageURI       string `json:"storage_uri"`
	MimeType         string `json:"mime_type"`
	UserNote         string `json:"user_note,omitempty"`
}

// RegisterDocument records a document in UPLOADED state.
func (s *Service) RegisterDocument(ctx context.Context, userID string, in DocumentInput) (*domain.Document, error) {
	if strings.TrimSpace(in.StorageURI) == "" {
		return nil, fmt.Errorf("RegisterDocument: storage uri is required: %w", domain.ErrInvalidInput)
	}
	doc := &domain.Document{
		ID:               uuid.NewString(),
		UserID:           userID,
		OriginalFilename: in.OriginalFilename,
		StorageURI:       in.StorageURI,
		MimeType:         strings.ToLower(strings.TrimSpace(in.MimeType)),
		Status:           domain.DocumentStatusUploaded,
		UserNote:         in.UserNote,
		CreatedAt:        s.now(),
	}
	if err := s.store.InsertDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("RegisterDocument: %w", err)
	}
	s.log.Info().Str("document_id", doc.ID).Str("mime_type", doc.MimeType).Msg("Registered document")
	return doc, nil
}

// GetDocument returns one of the user's documents.
func (s *Service) GetDocument(ctx context.Context, userID, documentID string) (*domain.Document, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("GetDocument: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("GetDocument: document %s: %w", documentID, domain.ErrNotFound)
	}
	if doc.UserID != userID {
		return nil, fmt.Errorf("GetDocument: document %s: %w", documentID, domain.ErrForbidden)
	}
	return doc, nil
}

// ListDocumentProposals returns every proposal produced for one of the user's documents.
func (s *Service) ListDocumentProposals(ctx context.Context, userID, documentID string) ([]*domain.ProposedChange, error) {
	if _, err := s.GetDocument(ctx, userID, documentID); err != nil {
		return nil, fmt.Errorf("ListDocumentProposals: %w", err)
	}
	out, err := s.store.ListDocumentProposals(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("ListDocumentProposals: %w", err)
	}
	return out, nil
}
