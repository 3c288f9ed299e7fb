package noteapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/notedown/internal/embed"
	"git.home.luguber.info/inful/notedown/internal/errors"
	"git.home.luguber.info/inful/notedown/internal/observability"
	"git.home.luguber.info/inful/notedown/internal/retry"
)

// EmbedKey is a server-registered embed: the content key note.com assigned
// and the HTML it renders the embed with.
type EmbedKey struct {
	Key        string
	RenderHTML string
}

// externalEmbedResponse is the GET /v2/embed_by_external_api shape.
type externalEmbedResponse struct {
	Data struct {
		Key          string `json:"key"`
		HTMLForEmbed string `json:"html_for_embed"`
	} `json:"data"`
}

// noteEmbedResponse is the POST /v1/embed shape used for note.com article
// URLs, which register through a different endpoint.
type noteEmbedResponse struct {
	Data struct {
		EmbeddedContent struct {
			Key          string `json:"key"`
			HTMLForEmbed string `json:"html_for_embed"`
		} `json:"embedded_content"`
	} `json:"data"`
}

// RegisterEmbed exchanges a URL for a server-registered embed key. The URL
// must classify to a supported service. A response missing key or
// html_for_embed is an integrity error, never defaulted. Transient transport
// failures are retried per the client's backoff policy.
func (c *Client) RegisterEmbed(ctx context.Context, embedURL, documentKey string) (EmbedKey, error) {
	service := embed.Classify(embedURL)
	if service == "" {
		return EmbedKey{}, errors.ValidationError("unsupported embed URL").WithContext("url", embedURL)
	}

	var key EmbedKey
	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		var err error
		if service == embed.ServiceNote {
			key, err = c.registerNoteEmbed(ctx, embedURL, documentKey)
		} else {
			key, err = c.registerExternalEmbed(ctx, embedURL, documentKey)
		}
		return err
	})
	if err == nil {
		c.rec.IncEmbedService(service)
	}
	return key, err
}

// statusError maps an HTTP status to the error taxonomy: server-side
// failures are retryable, everything else is terminal.
func statusError(status int, embedURL string) error {
	if status >= 500 {
		return errors.Retryable(errors.CategoryNetwork, errors.SeverityWarning,
			fmt.Sprintf("embed key exchange returned status %d", status)).WithContext("url", embedURL)
	}
	return errors.New(errors.CategoryNetwork, errors.SeverityError,
		fmt.Sprintf("embed key exchange returned status %d", status)).WithContext("url", embedURL)
}

func (c *Client) registerExternalEmbed(ctx context.Context, embedURL, documentKey string) (EmbedKey, error) {
	q := url.Values{}
	q.Set("url", embedURL)
	q.Set("note_key", documentKey)
	endpoint := c.base + "/v2/embed_by_external_api?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return EmbedKey{}, errors.WrapError(err, errors.CategoryInternal, "build embed request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return EmbedKey{}, errors.RetryableWrap(err, errors.CategoryNetwork, "embed key exchange failed").WithContext("url", embedURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return EmbedKey{}, statusError(resp.StatusCode, embedURL)
	}

	var body externalEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return EmbedKey{}, errors.WrapError(err, errors.CategoryIntegrity, "embed response not decodable")
	}
	return validateEmbedKey(body.Data.Key, body.Data.HTMLForEmbed, embedURL)
}

func (c *Client) registerNoteEmbed(ctx context.Context, embedURL, documentKey string) (EmbedKey, error) {
	payload, err := json.Marshal(map[string]string{
		"url":             embedURL,
		"embeddable_key":  documentKey,
		"embeddable_type": "Note",
	})
	if err != nil {
		return EmbedKey{}, errors.WrapError(err, errors.CategoryInternal, "encode embed payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/v1/embed", strings.NewReader(string(payload)))
	if err != nil {
		return EmbedKey{}, errors.WrapError(err, errors.CategoryInternal, "build embed request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return EmbedKey{}, errors.RetryableWrap(err, errors.CategoryNetwork, "embed key exchange failed").WithContext("url", embedURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return EmbedKey{}, statusError(resp.StatusCode, embedURL)
	}

	var body noteEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return EmbedKey{}, errors.WrapError(err, errors.CategoryIntegrity, "embed response not decodable")
	}
	return validateEmbedKey(body.Data.EmbeddedContent.Key, body.Data.EmbeddedContent.HTMLForEmbed, embedURL)
}

func validateEmbedKey(key, renderHTML, embedURL string) (EmbedKey, error) {
	if key == "" {
		return EmbedKey{}, errors.IntegrityError("embed response missing key").WithContext("url", embedURL)
	}
	if renderHTML == "" {
		return EmbedKey{}, errors.IntegrityError("embed response missing html_for_embed").WithContext("url", embedURL)
	}
	return EmbedKey{Key: key, RenderHTML: renderHTML}, nil
}

// ResolveEmbedKeys rewrites the local embedded-content-key attributes in
// encoded markup to server-registered keys. Embeds that fail to register
// keep their local key and are skipped; one failed exchange never aborts
// the rest.
func (c *Client) ResolveEmbedKeys(ctx context.Context, markup, documentKey string) (string, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryValidation, "markup not parseable")
	}

	var rewrite func(n *html.Node)
	rewrite = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "figure" {
			src := attr(n, "data-src")
			if src != "" && attr(n, "embedded-content-key") != "" {
				registered, err := c.RegisterEmbed(ctx, src, documentKey)
				if err != nil {
					observability.WarnContext(ctx, "embed registration failed, keeping local key",
						slog.String("url", src),
						slog.String("error", err.Error()))
				} else {
					setAttr(n, "embedded-content-key", registered.Key)
				}
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			rewrite(ch)
		}
	}
	for _, n := range nodes {
		rewrite(n)
	}

	var sb strings.Builder
	for _, n := range nodes {
		if err := html.Render(&sb, n); err != nil {
			return "", errors.WrapError(err, errors.CategoryInternal, "render markup")
		}
	}
	return sb.String(), nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
