package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

// DefaultPartSize is the S3 minimum for every part but the last.
const DefaultPartSize int64 = 5 * 1024 * 1024

// MultipartAPI is the slice of *s3.Client the uploader needs.
type MultipartAPI interface {
	CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, in *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// Uploader sends an in-memory payload as a multipart upload.
type Uploader struct {
	API      MultipartAPI
	PartSize int64
	// Concurrency bounds in-flight parts. 1 uploads strictly in order.
	Concurrency int
	// Progress receives a part-count progress bar; nil disables it.
	Progress io.Writer
}

// UploadResult describes a completed multipart upload.
type UploadResult struct {
	Bucket   string
	Key      string
	UploadID string
	ETag     string
	Parts    []types.CompletedPart
}

// AbortError reports a failed upload whose session could not be aborted either.
type AbortError struct {
	UploadID string
	Err      error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("failed to abort multipart upload %s: %v", e.UploadID, e.Err)
}

func (e *AbortError) Unwrap() error { return e.Err }

// PartCount returns ceil(size/partSize).
func PartCount(size, partSize int64) int {
	if size <= 0 || partSize <= 0 {
		return 0
	}
	return int((size + partSize - 1) / partSize)
}

// Upload initiates a session, uploads content in PartSize chunks numbered
// from 1, and completes the session with the ordered part list. Any failure
// after initiation aborts the session. The returned error wraps the cause;
// when the abort also fails, the result of errors.As(*AbortError) carries it.
func (u *Uploader) Upload(ctx context.Context, bucket, key string, content []byte) (*UploadResult, error) {
	partSize := u.PartSize
	if partSize <= 0 {
		partSize = DefaultPartSize
	}
	concurrency := u.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	total := PartCount(int64(len(content)), partSize)
	if total == 0 {
		return nil, fmt.Errorf("refusing to upload empty content to s3://%s/%s", bucket, key)
	}

	created, err := u.API.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart upload for s3://%s/%s: %w", bucket, key, err)
	}
	uploadID := aws.ToString(created.UploadId)

	bar := u.progressBar(total)
	parts := make([]types.CompletedPart, total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := 0; i < total; i++ {
		start := int64(i) * partSize
		end := start + partSize
		if end > int64(len(content)) {
			end = int64(len(content))
		}
		chunk := content[start:end]
		partNumber := int32(i + 1)
		idx := i

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := u.API.UploadPart(gctx, &s3.UploadPartInput{
				Bucket:        aws.String(bucket),
				Key:           aws.String(key),
				UploadId:      aws.String(uploadID),
				PartNumber:    aws.Int32(partNumber),
				Body:          bytes.NewReader(chunk),
				ContentLength: aws.Int64(int64(len(chunk))),
			})
			if err != nil {
				return fmt.Errorf("failed to upload part %d/%d: %w", partNumber, total, err)
			}
			parts[idx] = types.CompletedPart{
				ETag:       out.ETag,
				PartNumber: aws.Int32(partNumber),
			}
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, u.abort(ctx, bucket, key, uploadID, err)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	completed, err := u.API.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: parts},
	})
	if err != nil {
		return nil, u.abort(ctx, bucket, key, uploadID,
			fmt.Errorf("failed to complete multipart upload: %w", err))
	}

	return &UploadResult{
		Bucket:   bucket,
		Key:      key,
		UploadID: uploadID,
		ETag:     aws.ToString(completed.ETag),
		Parts:    parts,
	}, nil
}

// abort cancels the session on a context that survives the caller's
// cancellation, and returns cause joined with any abort failure.
func (u *Uploader) abort(ctx context.Context, bucket, key, uploadID string, cause error) error {
	abortCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	_, err := u.API.AbortMultipartUpload(abortCtx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		return fmt.Errorf("%w (%w)", cause, &AbortError{UploadID: uploadID, Err: err})
	}
	return cause
}

func (u *Uploader) progressBar(total int) *progressbar.ProgressBar {
	if u.Progress == nil {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(u.Progress),
		progressbar.OptionSetDescription("Uploading parts"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}
