package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/rtdconv/pkg/config"
	"github.com/charlie0129/rtdconv/pkg/events"
	"github.com/charlie0129/rtdconv/pkg/types"
)

func (c *Client) SetDegree(d int) (string, error) {
	ret, err := c.Put("/degree", strconv.Itoa(d))
	if err != nil {
		return "", err
	}
	return unquote(ret), nil
}

func (c *Client) SetReferenceResistance(r float64) (string, error) {
	ret, err := c.Put("/reference-resistance", strconv.FormatFloat(r, 'g', -1, 64))
	if err != nil {
		return "", err
	}
	return unquote(ret), nil
}

func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	ret, err := c.Get("/config")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get config")
	}

	var conf config.RawFileConfig
	if err := json.Unmarshal(ret, &conf); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal config")
	}

	return &conf, nil
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}
	return unquote(ret), nil
}

// Convert converts one resistance. r0 <= 0 uses the server's configured R0.
func (c *Client) Convert(resistance, r0 float64) (*types.ConvertResponse, error) {
	req := types.ConvertRequest{Resistance: resistance}
	if r0 > 0 {
		req.ReferenceResistance = &r0
	}

	var resp types.ConvertResponse
	if err := c.postJSON("/convert", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Fit(req types.FitRequest) (*types.FitResponse, error) {
	var resp types.FitResponse
	if err := c.postJSON("/fit", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadBatches uploads files for conversion with method and delimiter.
// Empty strings use the server defaults.
func (c *Client) UploadBatches(files []string, method, delimiter string) (*types.BatchResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if method != "" {
		if err := mw.WriteField("method", method); err != nil {
			return nil, err
		}
	}
	if delimiter != "" {
		if err := mw.WriteField("delimiter", delimiter); err != nil {
			return nil, err
		}
	}
	for _, f := range files {
		if err := addFile(mw, f); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to finish upload body")
	}

	b, _, err := c.Send(http.MethodPost, "/batches", mw.FormDataContentType(), &body)
	if err != nil {
		// A request where every file was rejected still carries the reasons.
		var apiErr *APIError
		if pkgerrors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
			var resp types.BatchResponse
			if json.Unmarshal([]byte(apiErr.Message), &resp) == nil && len(resp.Rejected) > 0 {
				return &resp, pkgerrors.New("no valid files uploaded")
			}
		}
		return nil, pkgerrors.Wrapf(err, "failed to upload batches")
	}

	var resp types.BatchResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal batch response")
	}
	return &resp, nil
}

func addFile(mw *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open %s", path)
	}
	defer func() {
		_ = f.Close()
	}()

	fw, err := mw.CreateFormFile("files[]", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return pkgerrors.Wrapf(err, "failed to read %s", path)
	}
	return nil
}

// Output format for DownloadOutput.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatPlot = "plot"
)

// DownloadOutput fetches a stored output in format.
func (c *Client) DownloadOutput(name, format string) ([]byte, error) {
	path := "/outputs/" + name
	switch format {
	case "", FormatCSV:
	case FormatXLSX, FormatPlot:
		path += "/" + format
	default:
		return nil, pkgerrors.Errorf("unknown output format %q", format)
	}

	b, err := c.Get(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to download %s", name)
	}
	return b, nil
}

func (c *Client) ListOutputs() ([]types.OutputInfo, error) {
	ret, err := c.Get("/outputs")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to list outputs")
	}

	var outputs []types.OutputInfo
	if err := json.Unmarshal(ret, &outputs); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal outputs")
	}
	return outputs, nil
}

func (c *Client) DeleteOutput(name string) error {
	if _, _, err := c.Send(http.MethodDelete, "/outputs/"+name, "", nil); err != nil {
		return pkgerrors.Wrapf(err, "failed to delete %s", name)
	}
	return nil
}

// Concatenate fetches the named outputs joined into one workbook.
func (c *Client) Concatenate(names []string) ([]byte, error) {
	payload, err := json.Marshal(types.ConcatenateRequest{Files: names})
	if err != nil {
		return nil, err
	}
	b, err := c.Post("/outputs/concatenate", payload)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to concatenate outputs")
	}
	return b, nil
}

// SubscribeEvents streams server events until ctx is done or the
// connection drops. The returned channel is closed then.
func (c *Client) SubscribeEvents(ctx context.Context) (<-chan events.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiPrefix+"/events", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	hc := *c.httpClient
	hc.Timeout = 0
	resp, err := hc.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to subscribe to events")
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, pkgerrors.Errorf("failed to subscribe to events: got %d", resp.StatusCode)
	}

	ch := make(chan events.Event)
	go func() {
		defer close(ch)
		defer func() {
			_ = resp.Body.Close()
		}()

		var ev events.Event
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			line := sc.Text()
			switch {
			case strings.HasPrefix(line, "event:"):
				ev.Name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				ev.Data = append(ev.Data, strings.TrimSpace(strings.TrimPrefix(line, "data:"))...)
			case line == "":
				if ev.Name == "" && len(ev.Data) == 0 {
					continue
				}
				select {
				case ch <- ev:
				case <-ctx.Done():
					return
				}
				ev = events.Event{}
			}
		}
		if err := sc.Err(); err != nil && ctx.Err() == nil {
			logrus.Warnf("event stream ended: %v", err)
		}
	}()

	return ch, nil
}

func (c *Client) postJSON(path string, req, resp any) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	ret, err := c.Post(path, payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(ret, resp); err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal response of %s", path)
	}
	return nil
}

// unquote strips the quotes around a JSON string response.
func unquote(b []byte) string {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return strings.TrimSpace(string(b))
	}
	return s
}
