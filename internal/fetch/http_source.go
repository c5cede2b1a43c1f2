package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/autodidact-ai/curator/internal/common"
	"github.com/autodidact-ai/curator/internal/interfaces"
	"github.com/autodidact-ai/curator/internal/models"
)

// HTTPSource fetches content pages over HTTP and extracts the transcript and
// metadata from the document. Clients are built per endpoint so each attempt
// egresses through the proxy it was assigned.
type HTTPSource struct {
	userAgent string
	converter *md.Converter
	logger    arbor.ILogger

	// newClient is replaceable in tests
	newClient func(endpoint *models.ProxyEndpoint) (*http.Client, error)
}

// NewHTTPSource creates an HTTP transcript source.
func NewHTTPSource(cfg *common.FetchConfig) *HTTPSource {
	s := &HTTPSource{
		userAgent: cfg.UserAgent,
		converter: md.NewConverter("", true, nil),
		logger:    common.GetLogger().WithPrefix("fetch.http"),
	}
	s.newClient = s.buildClient
	return s
}

func (s *HTTPSource) buildClient(endpoint *models.ProxyEndpoint) (*http.Client, error) {
	transport := &http.Transport{}
	if endpoint != nil {
		proxyURL, err := url.Parse(endpoint.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &http.Client{Transport: transport}, nil
}

// FetchTranscript retrieves and parses one content page.
func (s *HTTPSource) FetchTranscript(ctx context.Context, pageURL string, endpoint *models.ProxyEndpoint) (*interfaces.Transcript, error) {
	client, err := s.newClient(endpoint)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	meta := s.extractMetadata(doc)

	text, err := s.extractTranscript(doc)
	if err != nil {
		return nil, err
	}
	meta.HasCaptions = true

	return &interfaces.Transcript{
		Text:     text,
		Metadata: meta,
	}, nil
}

// extractTranscript pulls the transcript block out of the document and
// normalizes it to plain markdown text.
func (s *HTTPSource) extractTranscript(doc *goquery.Document) (string, error) {
	if sel := doc.Find("[data-transcript-state]").First(); sel.Length() > 0 {
		if state, _ := sel.Attr("data-transcript-state"); state == "disabled" || state == "unavailable" {
			return "", interfaces.ErrNoTranscript
		}
	}

	for _, selector := range []string{"#transcript", ".transcript", "section.transcript", "[itemprop=transcript]"} {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		text := strings.TrimSpace(s.converter.Convert(sel))
		if text != "" {
			return text, nil
		}
	}

	return "", interfaces.ErrNoTranscript
}

func (s *HTTPSource) extractMetadata(doc *goquery.Document) models.ContentMetadata {
	meta := models.ContentMetadata{
		Title:       firstNonEmpty(metaContent(doc, `meta[property="og:title"]`), strings.TrimSpace(doc.Find("title").First().Text())),
		Description: firstNonEmpty(metaContent(doc, `meta[property="og:description"]`), metaContent(doc, `meta[name="description"]`)),
		ChannelName: metaContent(doc, `meta[itemprop="channelName"]`),
	}

	meta.SubscriberCount = metaInt(doc, `meta[itemprop="subscriberCount"]`)
	meta.ViewCount = metaInt(doc, `meta[itemprop="interactionCount"]`)
	meta.LikeCount = metaInt(doc, `meta[itemprop="likeCount"]`)
	meta.CommentCount = metaInt(doc, `meta[itemprop="commentCount"]`)
	meta.IsVerified = metaContent(doc, `meta[itemprop="isVerified"]`) == "true"

	if published := metaContent(doc, `meta[itemprop="datePublished"]`); published != "" {
		if ts, err := time.Parse(time.RFC3339, published); err == nil {
			meta.PublishedAt = &ts
		} else if ts, err := time.Parse("2006-01-02", published); err == nil {
			meta.PublishedAt = &ts
		}
	}

	if duration := metaContent(doc, `meta[itemprop="duration"]`); duration != "" {
		meta.DurationSeconds = parseISODurationSeconds(duration)
	}

	doc.Find(`meta[property="og:video:tag"]`).Each(func(_ int, sel *goquery.Selection) {
		if tag, ok := sel.Attr("content"); ok && tag != "" {
			meta.Tags = append(meta.Tags, tag)
		}
	})

	return meta
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

func metaInt(doc *goquery.Document, selector string) int64 {
	raw := metaContent(doc, selector)
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(raw, ",", ""), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// parseISODurationSeconds handles the PT#H#M#S subset used by video markup.
func parseISODurationSeconds(iso string) int {
	iso = strings.TrimPrefix(strings.ToUpper(iso), "PT")
	total := 0
	num := ""
	for _, r := range iso {
		switch {
		case r >= '0' && r <= '9':
			num += string(r)
		case r == 'H' || r == 'M' || r == 'S':
			n, err := strconv.Atoi(num)
			if err != nil {
				return 0
			}
			switch r {
			case 'H':
				total += n * 3600
			case 'M':
				total += n * 60
			case 'S':
				total += n
			}
			num = ""
		default:
			return 0
		}
	}
	return total
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
