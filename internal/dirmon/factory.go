package dirmon

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/bobmcallan/jobforge/internal/common"
	"github.com/bobmcallan/jobforge/internal/interfaces"
	"github.com/bobmcallan/jobforge/internal/jobqueue"
	"github.com/bobmcallan/jobforge/internal/models"
)

// Factory implements a DirmonEntry's enqueue operation: mint a job id,
// archive the discovered file, and
// persist the follow-on UploadFileJob.
type Factory struct {
	uploads interfaces.UploadJobStore
	logger  *common.Logger
}

// NewFactory creates a Factory bound to the upload-job store.
func NewFactory(uploads interfaces.UploadJobStore, logger *common.Logger) *Factory {
	return &Factory{uploads: uploads, logger: logger}
}

// Later mints a job id, archives pathname under entry's archive
// directory, and persists the resulting UploadFileJob. Archival errors
// surface to the caller unchanged.
func (f *Factory) Later(ctx context.Context, entry *models.DirmonEntry, pathname string) (*models.UploadFileJob, error) {
	jobID := uuid.New().String()

	archived, err := ArchiveFile(entry, jobID, pathname)
	if err != nil {
		return nil, err
	}

	upload := &models.UploadFileJob{
		JobClassName:     entry.JobClassName,
		Properties:       entry.Properties,
		Description:      fmt.Sprintf("%s: %s", entry.Name, filepath.Base(pathname)),
		UploadFileName:   archived,
		OriginalFileName: pathname,
		JobID:            jobID,
	}

	if err := f.uploads.Create(ctx, upload); err != nil {
		return nil, fmt.Errorf("%w: %v", jobqueue.ErrStoreError, err)
	}

	f.logger.Info().
		Str("dirmon_entry", entry.Name).
		Str("original_file_name", pathname).
		Str("upload_file_name", archived).
		Str("job_id", jobID).
		Msg("dirmon enqueued upload job")

	return upload, nil
}
