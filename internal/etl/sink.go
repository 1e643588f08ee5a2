package etl

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/BartekS5/npiload/pkg/logger"
	"github.com/BartekS5/npiload/pkg/models"
	s3store "github.com/BartekS5/npiload/pkg/storage/s3"
	"github.com/BartekS5/npiload/pkg/utils"
)

// LocalSink writes the payload into a working directory.
type LocalSink struct {
	Fs  afero.Fs
	Dir string
	Log *zap.SugaredLogger
}

// NewLocalSink returns a sink on the OS filesystem.
func NewLocalSink(dir string, log *zap.SugaredLogger) *LocalSink {
	return &LocalSink{Fs: afero.NewOsFs(), Dir: dir, Log: log}
}

// Stage writes <Dir>/<payload name>, replacing any existing file, and syncs
// it before returning so the loader never reads a partial file.
func (s *LocalSink) Stage(_ context.Context, payload *models.Payload) (*models.StagedFile, error) {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	name := filepath.Base(payload.FileName)
	path := filepath.Join(dir, name)

	if err := s.Fs.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create working directory %s", dir)
	}
	f, err := s.Fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", path)
	}
	staged := &models.StagedFile{Kind: models.StagedLocal, FileName: name, Path: path}

	if _, err := f.Write(payload.Content); err != nil {
		f.Close()
		return staged, errors.Wrapf(err, "failed to write %s", path)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return staged, errors.Wrapf(err, "failed to flush %s", path)
	}
	if err := f.Close(); err != nil {
		return staged, errors.Wrapf(err, "failed to close %s", path)
	}

	staged.Size = payload.Size()
	logger.OrNop(s.Log).Infow("Payload saved", logger.FieldFile, path, logger.FieldSize, staged.Size)
	return staged, nil
}

// Cleanup removes the local copy. A file that was never created is not an error.
func (s *LocalSink) Cleanup(file *models.StagedFile) error {
	if file == nil || file.Path == "" {
		return nil
	}
	err := s.Fs.Remove(file.Path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to remove %s", file.Path)
	}
	if err == nil {
		logger.OrNop(s.Log).Infow("Temporary file removed", logger.FieldFile, file.Path)
	}
	return nil
}

// ObjectUploader is satisfied by *s3store.Uploader.
type ObjectUploader interface {
	Upload(ctx context.Context, bucket, key string, content []byte) (*s3store.UploadResult, error)
}

// ObjectStoreSink uploads the payload to a bucket key rendered from
// Prefix and Template. Uploaded objects are retained.
type ObjectStoreSink struct {
	Uploader ObjectUploader
	Bucket   string
	Prefix   string
	Template string
	Now      func() time.Time
	Log      *zap.SugaredLogger
}

func (s *ObjectStoreSink) Stage(ctx context.Context, payload *models.Payload) (*models.StagedFile, error) {
	log := logger.OrNop(s.Log)
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	key, err := utils.RenderObjectKey(s.Prefix, s.Template, payload.FileName, now())
	if err != nil {
		return nil, markf(ErrUpload, err, "failed to name object for %s", payload.FileName)
	}

	log.Infow("Uploading payload", logger.FieldBucket, s.Bucket, logger.FieldKey, key, logger.FieldSize, payload.Size())
	res, err := s.Uploader.Upload(ctx, s.Bucket, key, payload.Content)
	if err != nil {
		return nil, markf(ErrUpload, err, "failed to upload %s to s3://%s/%s", payload.FileName, s.Bucket, key)
	}
	log.Infow("Payload uploaded", logger.FieldBucket, s.Bucket, logger.FieldKey, key, logger.FieldParts, len(res.Parts))

	return &models.StagedFile{
		Kind:     models.StagedRemote,
		FileName: filepath.Base(payload.FileName),
		Bucket:   s.Bucket,
		Key:      key,
		Size:     payload.Size(),
	}, nil
}

// Cleanup is a no-op; the remote object is the durable artifact of the run.
func (s *ObjectStoreSink) Cleanup(*models.StagedFile) error { return nil }
