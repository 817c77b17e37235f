package server

import (
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/rtdconv/pkg/conversion"
	"github.com/charlie0129/rtdconv/pkg/store"
	"github.com/charlie0129/rtdconv/pkg/types"
)

const unixPrefix = "unix://"

// ginLogger logs every request through logger.
func ginLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// other handler can change c.Path so:
		path := c.Request.URL.Path
		start := time.Now()
		c.Next()
		latency := int(math.Ceil(float64(time.Since(start).Nanoseconds()) / 1000000.0))
		statusCode := c.Writer.Status()
		dataLength := c.Writer.Size()
		if dataLength < 0 {
			dataLength = 0
		}

		entry := logger.WithFields(logrus.Fields{
			"statusCode": statusCode,
			"latency":    latency,
			"method":     c.Request.Method,
			"path":       path,
			"dataLength": dataLength,
			"clientIP":   c.ClientIP(),
		})

		msg := fmt.Sprintf("%s %s %d (%dms)", c.Request.Method, path, statusCode, latency)
		if len(c.Errors) > 0 {
			msg += ": " + c.Errors.ByType(gin.ErrorTypePrivate).String()
		}
		//nolint:gocritic
		if statusCode >= http.StatusInternalServerError {
			entry.Error(msg)
		} else if statusCode >= http.StatusBadRequest {
			entry.Warn(msg)
		} else {
			entry.Debug(msg)
		}
	}
}

// statusFor maps an error to the HTTP status it is reported with.
func statusFor(err error) int {
	switch conversion.Kind(err) {
	case conversion.KindOutOfDomain, conversion.KindNonConvergent,
		conversion.KindUnderdetermined, conversion.KindIllConditioned:
		return http.StatusUnprocessableEntity
	case conversion.KindLengthMismatch:
		return http.StatusBadRequest
	}
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// abort writes err as an ErrorResponse and stops the handler chain.
func abort(c *gin.Context, status int, err error) {
	kind := conversion.Kind(err)
	if kind == conversion.KindUnknown {
		kind = ""
	}
	c.AbortWithStatusJSON(status, types.ErrorResponse{Error: err.Error(), Kind: kind})
	_ = c.Error(err)
}

// listen opens addr, which is either host:port or unix:///path/to/sock.
func listen(addr string) (net.Listener, error) {
	if path, ok := strings.CutPrefix(addr, unixPrefix); ok {
		// A socket left behind by an unclean exit would make Listen fail.
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, pkgerrors.Wrapf(err, "failed to remove stale socket %s", path)
		}
		l, err := net.Listen("unix", path)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "failed to listen on %s", path)
		}
		return l, nil
	}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to listen on %s", addr)
	}
	return l, nil
}
