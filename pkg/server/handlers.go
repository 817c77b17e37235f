package server

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/rtdconv/pkg/config"
	"github.com/charlie0129/rtdconv/pkg/conversion"
	"github.com/charlie0129/rtdconv/pkg/dataset"
	"github.com/charlie0129/rtdconv/pkg/events"
	"github.com/charlie0129/rtdconv/pkg/polyfit"
	"github.com/charlie0129/rtdconv/pkg/report"
	"github.com/charlie0129/rtdconv/pkg/rtd"
	"github.com/charlie0129/rtdconv/pkg/store"
	"github.com/charlie0129/rtdconv/pkg/types"
	"github.com/charlie0129/rtdconv/pkg/version"
)

const (
	outputPrefix = "output_"
	xlsxMIME     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func getConfig(c *gin.Context) {
	fc, err := config.NewRawFileConfigFromConfig(conf)
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}

// getEvents streams hub events until the client goes away.
func getEvents(c *gin.Context) {
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Stream(func(_ io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, ev.Data)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func setDegree(c *gin.Context) {
	var d int
	if err := c.BindJSON(&d); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}

	if err := config.ValidateDegree(d); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}

	conf.SetDegree(d)
	if err := conf.Save(); err != nil {
		logrus.Errorf("saveConfig failed: %v", err)
		abort(c, http.StatusInternalServerError, err)
		return
	}

	logrus.Infof("set fit degree to %d", d)
	hub.Publish(events.ConfigChanged, events.ConfigChangedEvent{Key: "degree", Value: d, Ts: time.Now().Unix()})

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("set fit degree to %d", d))
}

func setReferenceResistance(c *gin.Context) {
	var r float64
	if err := c.BindJSON(&r); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}

	if err := config.ValidateReferenceResistance(r); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}

	conf.SetReferenceResistance(r)
	if err := conf.Save(); err != nil {
		logrus.Errorf("saveConfig failed: %v", err)
		abort(c, http.StatusInternalServerError, err)
		return
	}

	logrus.Infof("set reference resistance to %g Ω", r)
	hub.Publish(events.ConfigChanged, events.ConfigChangedEvent{Key: "referenceResistance", Value: r, Ts: time.Now().Unix()})

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("set reference resistance to %g Ω", r))
}

func postConvert(c *gin.Context) {
	var req types.ConvertRequest
	if err := c.BindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}

	r0 := conf.ReferenceResistance()
	if req.ReferenceResistance != nil {
		r0 = *req.ReferenceResistance
	}

	t, err := rtd.FindTemperature(req.Resistance, r0)
	meters.ObserveSingle(err)
	if err != nil {
		abort(c, statusFor(err), err)
		return
	}

	c.IndentedJSON(http.StatusOK, types.ConvertResponse{
		Resistance:          req.Resistance,
		ReferenceResistance: r0,
		Temperature:         t,
	})
}

func postFit(c *gin.Context) {
	var req types.FitRequest
	if err := c.BindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}

	degree := conf.Degree()
	if req.Degree != nil {
		degree = *req.Degree
	}

	points := make([]polyfit.Point, len(req.Points))
	for i, p := range req.Points {
		points[i] = polyfit.Point{R: p.Resistance, T: p.Temperature}
	}

	poly, err := polyfit.Fit(points, degree)
	if err != nil {
		abort(c, statusFor(err), err)
		return
	}

	lo, hi := poly.Domain()
	resp := types.FitResponse{
		Degree:       poly.Degree(),
		Coefficients: poly.Coefficients(),
		Domain:       [2]float64{lo, hi},
	}
	if len(req.Evaluate) > 0 {
		resp.Values = poly.EvaluateAll(req.Evaluate)
	}

	c.IndentedJSON(http.StatusOK, resp)
}

func postBatches(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, conf.MaxUploadBytes())

	form, err := c.MultipartForm()
	if err != nil {
		abort(c, http.StatusBadRequest, pkgerrors.Wrapf(err, "failed to parse upload"))
		return
	}

	files := form.File["files[]"]
	if len(files) == 0 {
		abort(c, http.StatusBadRequest, pkgerrors.New("no files part in request"))
		return
	}
	if len(files) > conf.MaxFiles() {
		abort(c, http.StatusBadRequest, pkgerrors.Errorf("you can upload a maximum of %d files, got %d", conf.MaxFiles(), len(files)))
		return
	}

	method := conversion.MethodNewtonRaphson
	if m := c.PostForm("method"); m != "" {
		method, err = conversion.ParseMethod(m)
		if err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}
	}

	delim, err := dataset.ParseDelimiter(c.PostForm("delimiter"))
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}

	resp := types.BatchResponse{
		ID:      uuid.NewString(),
		Method:  string(method),
		Outputs: []types.BatchOutput{},
	}
	log := logrus.WithFields(logrus.Fields{"batchID": resp.ID, "method": method})

	var batches []conversion.Batch
	for _, fh := range files {
		if fh.Filename == "" {
			continue
		}
		name := store.SanitizeName(fh.Filename)
		if name == "" || !dataset.AllowedFile(name) {
			resp.Rejected = append(resp.Rejected, types.RejectedFile{
				File:   fh.Filename,
				Reason: fmt.Sprintf("invalid file format, allowed formats: %s", strings.Join(dataset.AllowedExtensions, ", ")),
			})
			continue
		}

		points, err := readUpload(fh, delim)
		if err != nil {
			resp.Rejected = append(resp.Rejected, types.RejectedFile{File: fh.Filename, Reason: err.Error()})
			continue
		}
		log.Infof("file %s read: %d resistances", name, len(points))
		batches = append(batches, conversion.Batch{Name: name, Points: points})
	}

	if len(batches) == 0 {
		c.IndentedJSON(http.StatusBadRequest, resp)
		return
	}

	results, err := conversion.ConvertAll(c.Request.Context(), batches, conversion.Request{
		Method:              method,
		ReferenceResistance: conf.ReferenceResistance(),
		Degree:              conf.Degree(),
	})
	if err != nil {
		abort(c, http.StatusServiceUnavailable, err)
		return
	}

	for _, res := range results {
		meters.ObserveBatch(method, res)

		out := types.BatchOutput{File: res.Name}
		if res.Err != nil {
			out.Error = res.Err.Error()
			out.Kind = conversion.Kind(res.Err)
			resp.Outputs = append(resp.Outputs, out)
			continue
		}

		var buf bytes.Buffer
		if err := dataset.Write(&buf, res.Rows); err != nil {
			abort(c, http.StatusInternalServerError, err)
			return
		}
		out.Output = outputPrefix + res.Name
		if err := artifacts.Put(c.Request.Context(), out.Output, buf.Bytes()); err != nil {
			abort(c, http.StatusInternalServerError, err)
			return
		}
		log.Infof("output file generated: %s", out.Output)

		stats := conversion.Summary(res.Rows)
		out.Summary = &stats
		for i, r := range res.Rows {
			if !r.OK() {
				out.Failures = append(out.Failures, types.RowFailure{
					Row:        i + 1,
					Resistance: r.Resistance,
					Kind:       conversion.Kind(r.Err),
					Message:    r.Err.Error(),
				})
			}
		}
		resp.Outputs = append(resp.Outputs, out)
	}

	completed := events.BatchCompletedEvent{ID: resp.ID, Method: resp.Method, Outputs: []string{}, Ts: time.Now().Unix()}
	for _, out := range resp.Outputs {
		if out.Output == "" {
			completed.Failed++
			continue
		}
		completed.Outputs = append(completed.Outputs, out.Output)
	}
	hub.Publish(events.BatchCompleted, completed)

	c.IndentedJSON(http.StatusCreated, resp)
}

func readUpload(fh *multipart.FileHeader, delim rune) ([]polyfit.Point, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open upload %s", fh.Filename)
	}
	defer func(f multipart.File) {
		if err := f.Close(); err != nil {
			logrus.Warnf("failed to close upload %s", fh.Filename)
		}
	}(f)

	return dataset.Read(f, delim)
}

func loadOutput(c *gin.Context) ([]byte, bool) {
	name := c.Param("name")
	b, err := artifacts.Get(c.Request.Context(), name)
	if err != nil {
		abort(c, statusFor(err), err)
		return nil, false
	}
	return b, true
}

func listOutputs(c *gin.Context) {
	objs, err := artifacts.List(c.Request.Context())
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}

	outputs := make([]types.OutputInfo, 0, len(objs))
	for _, o := range objs {
		if strings.HasPrefix(o.Name, outputPrefix) {
			outputs = append(outputs, types.OutputInfo{Name: o.Name, ModTime: o.ModTime})
		}
	}
	c.IndentedJSON(http.StatusOK, outputs)
}

func deleteOutput(c *gin.Context) {
	name := c.Param("name")
	ok, err := artifacts.Exists(c.Request.Context(), name)
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		abort(c, http.StatusNotFound, pkgerrors.Wrapf(store.ErrNotFound, "%s", name))
		return
	}

	if err := artifacts.Delete(c.Request.Context(), name); err != nil {
		abort(c, statusFor(err), err)
		return
	}
	logrus.Infof("output %s deleted", name)
	c.Status(http.StatusNoContent)
}

func getOutput(c *gin.Context) {
	b, ok := loadOutput(c)
	if !ok {
		return
	}
	c.Data(http.StatusOK, "text/csv; charset=utf-8", b)
}

func getOutputXLSX(c *gin.Context) {
	b, ok := loadOutput(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.CSVToXLSX(&buf, bytes.NewReader(b)); err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}

	name := strings.TrimSuffix(c.Param("name"), filepath.Ext(c.Param("name"))) + ".xlsx"
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxMIME, buf.Bytes())
}

func getOutputPlot(c *gin.Context) {
	b, ok := loadOutput(c)
	if !ok {
		return
	}

	rows, err := dataset.ReadOutput(bytes.NewReader(b))
	if err != nil {
		abort(c, http.StatusUnprocessableEntity, err)
		return
	}

	var buf bytes.Buffer
	if err := report.ErrorPlot(&buf, rows); err != nil {
		status := http.StatusInternalServerError
		if pkgerrors.Is(err, report.ErrNothingToPlot) {
			status = http.StatusUnprocessableEntity
		}
		abort(c, status, err)
		return
	}

	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func postConcatenate(c *gin.Context) {
	var req types.ConcatenateRequest
	if err := c.BindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	if len(req.Files) == 0 {
		abort(c, http.StatusBadRequest, pkgerrors.New("no files to concatenate"))
		return
	}

	var readers []io.Reader
	for _, name := range req.Files {
		b, err := artifacts.Get(c.Request.Context(), name)
		if err != nil {
			abort(c, statusFor(err), err)
			return
		}
		readers = append(readers, bytes.NewReader(b))
	}

	var buf bytes.Buffer
	if err := report.Concatenate(&buf, readers...); err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="combined_output.xlsx"`)
	c.Data(http.StatusOK, xlsxMIME, buf.Bytes())
}
