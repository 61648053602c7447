package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/codeready-toolchain/protocolx/ent"
	"github.com/codeready-toolchain/protocolx/ent/protocol"
	"github.com/codeready-toolchain/protocolx/pkg/models"
	"github.com/google/uuid"
)

// ProtocolService manages ingested protocol PDFs.
type ProtocolService struct {
	client *ent.Client
}

// NewProtocolService creates a new ProtocolService.
func NewProtocolService(client *ent.Client) *ProtocolService {
	return &ProtocolService{client: client}
}

// CreateProtocol ingests a new protocol PDF, deduplicating on content
// hash: re-ingesting identical bytes returns the existing row instead
// of creating a duplicate.
func (s *ProtocolService) CreateProtocol(httpCtx context.Context, req models.CreateProtocolRequest) (*ent.Protocol, error) {
	if req.Filename == "" {
		return nil, NewValidationError("filename", "required")
	}
	if len(req.Content) == 0 {
		return nil, NewValidationError("content", "required")
	}

	sum := sha256.Sum256(req.Content)
	hash := hex.EncodeToString(sum[:])

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	existing, err := s.client.Protocol.Query().Where(protocol.ContentHashEQ(hash)).Only(ctx)
	if err == nil {
		return existing, nil
	}
	if !ent.IsNotFound(err) {
		return nil, fmt.Errorf("query existing protocol by content hash: %w", err)
	}

	p, err := s.client.Protocol.Create().
		SetID(uuid.NewString()).
		SetFilename(req.Filename).
		SetContent(req.Content).
		SetContentHash(hash).
		SetSizeBytes(int64(len(req.Content))).
		Save(ctx)
	if err != nil {
		if ent.IsConstraintError(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("create protocol: %w", err)
	}
	return p, nil
}

// GetProtocol retrieves a protocol by id.
func (s *ProtocolService) GetProtocol(ctx context.Context, id string) (*ent.Protocol, error) {
	p, err := s.client.Protocol.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get protocol: %w", err)
	}
	return p, nil
}

// ListProtocols lists protocols with filtering and pagination.
func (s *ProtocolService) ListProtocols(ctx context.Context, filters models.ProtocolFilters) (*models.ProtocolListResponse, error) {
	query := s.client.Protocol.Query()

	if filters.Filename != "" {
		query = query.Where(protocol.FilenameContains(filters.Filename))
	}
	if filters.CreatedAfter != nil {
		query = query.Where(protocol.CreatedAtGTE(*filters.CreatedAfter))
	}
	if !filters.IncludeDeleted {
		query = query.Where(protocol.DeletedAtIsNil())
	}

	totalCount, err := query.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count protocols: %w", err)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}

	protocols, err := query.
		Limit(limit).
		Offset(offset).
		Order(ent.Desc(protocol.FieldCreatedAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list protocols: %w", err)
	}

	return &models.ProtocolListResponse{
		Protocols:  protocols,
		TotalCount: totalCount,
		Limit:      limit,
		Offset:     offset,
	}, nil
}

// SetPageMetadata records the page count and printed/physical page
// offset the combiner detected for a protocol.
func (s *ProtocolService) SetPageMetadata(ctx context.Context, id string, pageCount, pageOffset int) error {
	err := s.client.Protocol.UpdateOneID(id).
		SetPageCount(pageCount).
		SetPageOffset(pageOffset).
		Exec(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("set protocol page metadata: %w", err)
	}
	return nil
}

// SoftDeleteOldProtocols soft deletes protocols whose created_at is
// before the retention cutoff; job completion times are not consulted.
func (s *ProtocolService) SoftDeleteOldProtocols(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retention_days must be positive, got %d", retentionDays)
	}

	cutoff := time.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour)

	writeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := s.client.Protocol.Update().
		Where(
			protocol.CreatedAtLT(cutoff),
			protocol.DeletedAtIsNil(),
		).
		SetDeletedAt(time.Now()).
		Save(writeCtx)
	if err != nil {
		return 0, fmt.Errorf("soft delete old protocols: %w", err)
	}
	return count, nil
}
