package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/simbroker/simbroker/internal/domain"
)

// TransactionArchiveStore is the read access the archiver needs: just the
// time-ranged terminal-transaction query, not the full store interface.
type TransactionArchiveStore interface {
	ListTerminalBefore(ctx context.Context, before time.Time) ([]domain.Transaction, error)
}

// multipartWriter is the optional fast path for large uploads. The S3 Writer
// implements it; test doubles may not.
type multipartWriter interface {
	PutMultipart(ctx context.Context, path string, data io.Reader, contentType string, partSize int64) error
}

// multipartThreshold is the payload size above which an archive upload goes
// through the multipart path instead of a single PutObject.
const multipartThreshold int64 = 64 * 1024 * 1024

// ArchiveImpl implements domain.Archiver by querying the transaction store
// for old terminal records, serializing them to JSONL, and uploading the
// result to S3.
//
// Deletion of the archived records from the primary store is intentionally
// NOT performed here -- that is a separate, explicit step to be executed
// after the archive has been verified.
type ArchiveImpl struct {
	writer         domain.BlobWriter
	txns           TransactionArchiveStore
	multipartAbove int64
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter, txns TransactionArchiveStore) *ArchiveImpl {
	return &ArchiveImpl{
		writer:         writer,
		txns:           txns,
		multipartAbove: multipartThreshold,
	}
}

// archivedTransaction is the JSONL row format. Money fields are decimal
// strings so the archive round-trips without float drift.
type archivedTransaction struct {
	ID        string `json:"id"`
	TeamID    string `json:"team_id"`
	StockID   string `json:"stock_id"`
	Type      string `json:"type"`
	Amount    int64  `json:"amount"`
	Price     string `json:"price"`
	Fee       string `json:"fee"`
	Status    string `json:"status"`
	Note      string `json:"note,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ArchiveTransactions queries all terminal transactions before the cutoff,
// serializes them to JSONL, and uploads the file to S3 at
// archive/transactions/YYYY-MM.jsonl. The count of archived records is
// returned.
func (a *ArchiveImpl) ArchiveTransactions(ctx context.Context, before time.Time) (int64, error) {
	txns, err := a.txns.ListTerminalBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive transactions query: %w", err)
	}
	if len(txns) == 0 {
		return 0, nil
	}

	records := make([]archivedTransaction, 0, len(txns))
	for _, t := range txns {
		records = append(records, archivedTransaction{
			ID:        t.ID,
			TeamID:    t.TeamID,
			StockID:   t.StockID,
			Type:      string(t.Type),
			Amount:    t.Amount,
			Price:     t.Price.String(),
			Fee:       t.Fee.String(),
			Status:    string(t.Status),
			Note:      t.Note,
			CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive transactions marshal: %w", err)
	}

	path := archivePath("transactions", before)
	if err := a.upload(ctx, path, buf, "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive transactions upload: %w", err)
	}

	return int64(len(txns)), nil
}

// upload sends the payload in one PutObject, switching to a multipart upload
// for payloads past the threshold when the writer supports it.
func (a *ArchiveImpl) upload(ctx context.Context, path string, buf []byte, contentType string) error {
	if mw, ok := a.writer.(multipartWriter); ok && int64(len(buf)) >= a.multipartAbove {
		return mw.PutMultipart(ctx, path, bytes.NewReader(buf), contentType, minPartSize)
	}
	return a.writer.Put(ctx, path, bytes.NewReader(buf), contentType)
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/transactions/2026-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
