package haiblock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

var errIsDirectory = errors.New("is a directory")

// UploadFile uploads the file at path as a new content item. metadata, when
// non-empty, is sent as a JSON object alongside the file. A missing,
// unreadable or directory path fails with *FileAccessError before any
// request is made. Uploads are never retried.
func (c *Client) UploadFile(ctx context.Context, path string, metadata map[string]any) (*ContentRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &FileAccessError{Path: path, Op: "stat", Err: err}
	}
	if info.IsDir() {
		return nil, &FileAccessError{Path: path, Op: "read", Err: errIsDirectory}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &FileAccessError{Path: path, Op: "open", Err: err}
	}
	defer f.Close()

	var metaJSON []byte
	if len(metadata) > 0 {
		metaJSON, err = json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode upload metadata: %w", err)
		}
	}

	// Stream the multipart body so large files are not buffered in memory.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	errc := make(chan error, 1)
	go func() {
		err := writeUploadBody(mw, &fileReader{f: f, path: path}, filepath.Base(path), metaJSON)
		pw.CloseWithError(err)
		errc <- err
	}()

	body, sendErr := c.send(ctx, http.MethodPost, "/content", nil, pr, mw.FormDataContentType())
	pr.Close()
	writeErr := <-errc

	var fileErr *FileAccessError
	if errors.As(writeErr, &fileErr) {
		return nil, fileErr
	}
	if sendErr != nil {
		return nil, sendErr
	}

	var record ContentRecord
	if err := decode(schemaContent, body, &record); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("content_id", record.ID).
		Str("filename", record.Filename).
		Int64("size", info.Size()).
		Msg("Uploaded file to HaiBlock")

	return &record, nil
}

func writeUploadBody(mw *multipart.Writer, r io.Reader, filename string, metadata []byte) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filename)))
	header.Set("Content-Type", detectContentType(filename))

	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	if len(metadata) > 0 {
		if err := mw.WriteField("metadata", string(metadata)); err != nil {
			return err
		}
	}
	return mw.Close()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func detectContentType(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// fileReader tags read failures so UploadFile can report them as
// *FileAccessError rather than as a transport failure.
type fileReader struct {
	f    *os.File
	path string
}

func (r *fileReader) Read(p []byte) (int, error) {
	n, err := r.f.Read(p)
	if err != nil && err != io.EOF {
		return n, &FileAccessError{Path: r.path, Op: "read", Err: err}
	}
	return n, err
}

// BatchUploadResult contains the results of UploadFiles
type BatchUploadResult struct {
	Requested int
	// Uploaded holds the created records in the order of the input paths
	Uploaded []*ContentRecord
	Failed   []UploadError
}

// UploadError contains information about a failed upload
type UploadError struct {
	Path string
	Err  error
}

// Error implements the error interface
func (e UploadError) Error() string {
	return fmt.Sprintf("failed to upload %s: %v", e.Path, e.Err)
}

func (e UploadError) Unwrap() error {
	return e.Err
}

// UploadFiles uploads several files concurrently, bounded by
// WithUploadConcurrency. One failed file does not stop the others.
func (c *Client) UploadFiles(ctx context.Context, paths []string, metadata map[string]any) BatchUploadResult {
	result := BatchUploadResult{
		Requested: len(paths),
	}
	if len(paths) == 0 {
		return result
	}

	records := make([]*ContentRecord, len(paths))
	errs := make([]error, len(paths))

	var g errgroup.Group
	g.SetLimit(c.uploadConcurrency)

	for i, path := range paths {
		g.Go(func() error {
			record, err := c.UploadFile(ctx, path, metadata)
			if err != nil {
				c.logger.Warn().
					Err(err).
					Str("path", path).
					Msg("Failed to upload file")
				errs[i] = err
				return nil // keep uploading the rest
			}
			records[i] = record
			return nil
		})
	}
	g.Wait()

	for i, path := range paths {
		if errs[i] != nil {
			result.Failed = append(result.Failed, UploadError{Path: path, Err: errs[i]})
			continue
		}
		result.Uploaded = append(result.Uploaded, records[i])
	}
	return result
}

// GetContent retrieves a single content item
func (c *Client) GetContent(ctx context.Context, contentID string) (*ContentRecord, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/content/"+pathEscape(contentID), nil)
	if err != nil {
		return nil, err
	}

	var record ContentRecord
	if err := decode(schemaContent, body, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// DeleteContent removes a content item
func (c *Client) DeleteContent(ctx context.Context, contentID string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/content/"+pathEscape(contentID), nil)
	return err
}

// ListOptions controls list pagination
type ListOptions struct {
	// PageSize is the number of records requested per page. Zero uses the
	// client default.
	PageSize int
	// MaxPages stops iteration after this many pages. Zero means no limit.
	MaxPages int
}

// ListContent returns a lazy sequence over every content item. Pages are
// fetched from the first one on each call and only as iteration proceeds.
// An error is yielded once and ends the sequence.
//
//	for record, err := range client.ListContent(ctx, haiblock.ListOptions{}) {
//		if err != nil {
//			return err
//		}
//		fmt.Println(record.ID)
//	}
func (c *Client) ListContent(ctx context.Context, opts ListOptions) iter.Seq2[*ContentRecord, error] {
	return paginate(ctx, c, "/content", nil, opts, func(raw json.RawMessage) (*ContentRecord, error) {
		var record ContentRecord
		if err := decode(schemaContent, raw, &record); err != nil {
			return nil, err
		}
		return &record, nil
	})
}

// CollectContent drains ListContent into a slice
func (c *Client) CollectContent(ctx context.Context, opts ListOptions) ([]*ContentRecord, error) {
	var records []*ContentRecord
	for record, err := range c.ListContent(ctx, opts) {
		if err != nil {
			return records, err
		}
		records = append(records, record)
	}
	return records, nil
}

// paginate walks page-numbered list endpoints. The server's page count is
// preferred, then its total, then a short page as the end marker.
func paginate[T any](
	ctx context.Context,
	c *Client,
	endpoint string,
	base url.Values,
	opts ListOptions,
	decodeItem func(json.RawMessage) (T, error),
) iter.Seq2[T, error] {
	limit := opts.PageSize
	if limit <= 0 {
		limit = c.pageSize
	}

	return func(yield func(T, error) bool) {
		var zero T
		var previousFirst json.RawMessage
		for page := 1; ; page++ {
			params := url.Values{}
			for k, v := range base {
				params[k] = v
			}
			params.Set("page", strconv.Itoa(page))
			params.Set("limit", strconv.Itoa(limit))

			body, err := c.doRequest(ctx, http.MethodGet, endpoint, params)
			if err != nil {
				yield(zero, err)
				return
			}

			var envelope pageEnvelope
			if err := decode(schemaPage, body, &envelope); err != nil {
				yield(zero, err)
				return
			}

			if err := envelope.checkPage(page, previousFirst); err != nil {
				yield(zero, err)
				return
			}
			if len(envelope.Items) > 0 {
				previousFirst = envelope.Items[0]
			}

			c.logger.Debug().
				Str("path", endpoint).
				Int("page", page).
				Int("pages", envelope.Pages).
				Int("count", len(envelope.Items)).
				Msg("Retrieved page")

			for _, raw := range envelope.Items {
				item, err := decodeItem(raw)
				if err != nil {
					yield(zero, err)
					return
				}
				if !yield(item, nil) {
					return
				}
			}

			if !envelope.hasMore(page, limit) {
				return
			}
			if opts.MaxPages > 0 && page >= opts.MaxPages {
				return
			}
		}
	}
}
