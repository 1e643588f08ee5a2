package etl

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/npiload/pkg/models"
	s3store "github.com/BartekS5/npiload/pkg/storage/s3"
)

func TestLocalSink_StageAndCleanup(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink := &LocalSink{Fs: fs, Dir: "/work"}
	payload := &models.Payload{FileName: "npi_data.csv", Content: []byte(sampleCSV)}

	staged, err := sink.Stage(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, models.StagedLocal, staged.Kind)
	assert.Equal(t, filepath.Join("/work", "npi_data.csv"), staged.Path)
	assert.Equal(t, int64(len(sampleCSV)), staged.Size)
	assert.Equal(t, staged.Path, staged.Location())

	got, err := afero.ReadFile(fs, staged.Path)
	require.NoError(t, err)
	assert.Equal(t, sampleCSV, string(got))

	require.NoError(t, sink.Cleanup(staged))
	exists, err := afero.Exists(fs, staged.Path)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalSink_OverwritesExistingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/npi_data.csv", []byte("stale content that is longer than the new one"), 0o644))

	sink := &LocalSink{Fs: fs, Dir: "/work"}
	staged, err := sink.Stage(context.Background(), &models.Payload{FileName: "npi_data.csv", Content: []byte("fresh")})
	require.NoError(t, err)

	got, err := afero.ReadFile(fs, staged.Path)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(got))
}

func TestLocalSink_StripsMemberDirectories(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink := &LocalSink{Fs: fs, Dir: "/work"}

	staged, err := sink.Stage(context.Background(), &models.Payload{FileName: "../../etc/npi_data.csv", Content: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/work", "npi_data.csv"), staged.Path)
}

func TestLocalSink_CleanupTolerant(t *testing.T) {
	sink := &LocalSink{Fs: afero.NewMemMapFs(), Dir: "/work"}

	assert.NoError(t, sink.Cleanup(nil))
	assert.NoError(t, sink.Cleanup(&models.StagedFile{Kind: models.StagedLocal}))
	assert.NoError(t, sink.Cleanup(&models.StagedFile{Kind: models.StagedLocal, Path: "/work/never-written.csv"}))
}

type fakeUploader struct {
	bucket, key string
	content     []byte
	err         error
}

func (f *fakeUploader) Upload(_ context.Context, bucket, key string, content []byte) (*s3store.UploadResult, error) {
	f.bucket, f.key, f.content = bucket, key, content
	if f.err != nil {
		return nil, f.err
	}
	return &s3store.UploadResult{Bucket: bucket, Key: key, UploadID: "upload-1"}, nil
}

func TestObjectStoreSink_Stage(t *testing.T) {
	up := &fakeUploader{}
	sink := &ObjectStoreSink{
		Uploader: up,
		Bucket:   "nppes-bucket",
		Prefix:   "raw/",
		Now:      func() time.Time { return time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC) },
	}

	staged, err := sink.Stage(context.Background(), &models.Payload{FileName: "npi_data.csv", Content: []byte(sampleCSV)})
	require.NoError(t, err)

	assert.Equal(t, "nppes-bucket", up.bucket)
	assert.Equal(t, "raw/NPPES_Data_Dissemination_January_2024.csv", up.key)
	assert.Equal(t, []byte(sampleCSV), up.content)

	assert.Equal(t, models.StagedRemote, staged.Kind)
	assert.Equal(t, "s3://nppes-bucket/raw/NPPES_Data_Dissemination_January_2024.csv", staged.Location())
	assert.NoError(t, sink.Cleanup(staged))
}

func TestObjectStoreSink_CustomTemplate(t *testing.T) {
	up := &fakeUploader{}
	sink := &ObjectStoreSink{
		Uploader: up,
		Bucket:   "b",
		Template: "{{.Year}}/{{.FileName}}",
		Now:      func() time.Time { return time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC) },
	}

	_, err := sink.Stage(context.Background(), &models.Payload{FileName: "endpoint_pfile.csv", Content: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, "2024/endpoint_pfile.csv", up.key)
}

func TestObjectStoreSink_UploadError(t *testing.T) {
	sink := &ObjectStoreSink{Uploader: &fakeUploader{err: errors.New("access denied")}, Bucket: "b"}

	staged, err := sink.Stage(context.Background(), &models.Payload{FileName: "npi_data.csv", Content: []byte("x")})
	assert.Nil(t, staged)
	assert.ErrorIs(t, err, ErrUpload)
	assert.Contains(t, err.Error(), "access denied")
	assert.Equal(t, "upload", Kind(err))
}

func TestObjectStoreSink_BadTemplate(t *testing.T) {
	sink := &ObjectStoreSink{Uploader: &fakeUploader{}, Bucket: "b", Template: "{{.Nope}}"}

	_, err := sink.Stage(context.Background(), &models.Payload{FileName: "npi_data.csv", Content: []byte("x")})
	assert.ErrorIs(t, err, ErrUpload)
}
