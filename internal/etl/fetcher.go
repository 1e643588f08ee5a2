package etl

import (
	"context"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/BartekS5/npiload/pkg/logger"
	"github.com/BartekS5/npiload/pkg/utils"
)

// Fetcher downloads the archive into memory.
type Fetcher struct {
	Client    *http.Client
	UserAgent string
	Log       *zap.SugaredLogger
}

// Fetch GETs url and returns the full body. The zip central directory sits
// at the end of the file, so the archive is buffered before extraction.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	log := logger.OrNop(f.Log)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, markf(ErrFetch, err, "invalid archive url %s", url)
	}
	ua := f.UserAgent
	if ua == "" {
		ua = utils.DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)

	client := f.Client
	if client == nil {
		client = utils.NewHTTPClient(utils.DefaultConnectTimeout, utils.DefaultReadTimeout)
	}

	log.Infow("Downloading archive", logger.FieldURL, url)
	resp, err := client.Do(req)
	if err != nil {
		return nil, markf(ErrFetch, err, "failed to download %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, markf(ErrFetch, nil, "archive %s returned status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, markf(ErrFetch, err, "failed to read archive body from %s", url)
	}
	log.Infow("Archive downloaded", logger.FieldURL, url, logger.FieldSize, len(body))
	return body, nil
}
