package etl

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/BartekS5/npiload/pkg/logger"
	"github.com/BartekS5/npiload/pkg/models"
	"github.com/BartekS5/npiload/pkg/utils"
)

// Locator finds the monthly archive link on the landing page.
type Locator struct {
	Client    *http.Client
	UserAgent string
	Log       *zap.SugaredLogger
}

// Locate fetches pageURL and returns the first anchor whose id starts with
// idPrefix (case sensitive). The link is the page URL with its last path
// segment replaced by the anchor's href.
func (l *Locator) Locate(ctx context.Context, pageURL, idPrefix string) (*models.DownloadLink, error) {
	log := logger.OrNop(l.Log)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, markf(ErrNotFound, err, "invalid landing page url %s", pageURL)
	}
	req.Header.Set("User-Agent", l.userAgent())

	resp, err := l.client().Do(req)
	if err != nil {
		return nil, markf(ErrNotFound, err, "failed to fetch landing page %s", pageURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, markf(ErrNotFound, nil, "landing page %s returned status %d", pageURL, resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, markf(ErrNotFound, err, "failed to parse landing page %s", pageURL)
	}

	id, href, ok := findAnchor(doc, idPrefix)
	if !ok {
		return nil, markf(ErrNotFound, nil, "no anchor with id prefix %q on %s", idPrefix, pageURL)
	}

	link := &models.DownloadLink{
		PageURL:  pageURL,
		AnchorID: id,
		Href:     href,
		URL:      ResolveLink(pageURL, href),
	}
	log.Infow("Download link located", logger.FieldURL, link.URL, "anchor", id)
	return link, nil
}

// ResolveLink drops the last path segment of pageURL and appends href.
func ResolveLink(pageURL, href string) string {
	base := pageURL
	if i := strings.LastIndex(pageURL, "/"); i >= 0 {
		base = pageURL[:i]
	}
	return base + "/" + href
}

// findAnchor walks the document in order and returns the first <a> whose id
// has the given prefix.
func findAnchor(n *html.Node, idPrefix string) (string, string, bool) {
	if n.Type == html.ElementNode && n.Data == "a" {
		var id, href string
		for _, attr := range n.Attr {
			switch attr.Key {
			case "id":
				id = attr.Val
			case "href":
				href = attr.Val
			}
		}
		if id != "" && strings.HasPrefix(id, idPrefix) {
			return id, href, true
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if id, href, ok := findAnchor(c, idPrefix); ok {
			return id, href, true
		}
	}
	return "", "", false
}

func (l *Locator) client() *http.Client {
	if l.Client != nil {
		return l.Client
	}
	return utils.NewHTTPClient(utils.DefaultConnectTimeout, utils.DefaultReadTimeout)
}

func (l *Locator) userAgent() string {
	if l.UserAgent != "" {
		return l.UserAgent
	}
	return utils.DefaultUserAgent
}
