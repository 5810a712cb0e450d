package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/dsnet/compress/bzip2"
	"github.com/ulikunitz/xz"

	"github.com/mediabunnygo/mediabunny/internal/repository"
)

// ExportFormat selects the compression codec used for a job-history export.
type ExportFormat string

const (
	ExportFormatBrotli ExportFormat = "brotli"
	ExportFormatXZ     ExportFormat = "xz"
	ExportFormatBzip2  ExportFormat = "bzip2"
)

// ExportService snapshots job history to a compressed stream, for operators
// who want to archive or ship job records out of the database.
type ExportService struct {
	jobs repository.JobRepository
}

// NewExportService creates an ExportService backed by a job repository.
func NewExportService(jobs repository.JobRepository) *ExportService {
	return &ExportService{jobs: jobs}
}

// Export writes every job record as newline-delimited JSON, compressed with
// the requested format, to w.
func (s *ExportService) Export(ctx context.Context, format ExportFormat, w io.Writer) error {
	jobs, err := s.jobs.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("service: listing jobs for export: %w", err)
	}

	cw, closeFn, err := compressWriter(format, w)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cw)
	for _, j := range jobs {
		if err := enc.Encode(j); err != nil {
			_ = closeFn()
			return fmt.Errorf("service: encoding job %s: %w", j.ID, err)
		}
	}
	return closeFn()
}

func compressWriter(format ExportFormat, w io.Writer) (io.Writer, func() error, error) {
	switch format {
	case ExportFormatBrotli:
		bw := brotli.NewWriter(w)
		return bw, bw.Close, nil
	case ExportFormatXZ:
		xw, err := xz.NewWriter(w)
		if err != nil {
			return nil, nil, fmt.Errorf("service: creating xz writer: %w", err)
		}
		return xw, xw.Close, nil
	case ExportFormatBzip2:
		bz, err := bzip2.NewWriter(w, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("service: creating bzip2 writer: %w", err)
		}
		return bz, bz.Close, nil
	default:
		return nil, nil, fmt.Errorf("service: unknown export format %q", format)
	}
}
