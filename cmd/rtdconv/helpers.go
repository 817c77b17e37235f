package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/charlie0129/rtdconv/pkg/client"
	"github.com/charlie0129/rtdconv/pkg/dataset"
	"github.com/charlie0129/rtdconv/pkg/polyfit"
	"github.com/charlie0129/rtdconv/pkg/version"
)

func parseIntArg(args []string, valueName string) (int, error) {
	if len(args) != 1 {
		return 0, errInvalidArgs
	}

	value, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", valueName, err)
	}

	return value, nil
}

func parseFloatArgs(args []string, valueName string) ([]float64, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("at least one %s is required", valueName)
	}

	values := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %v", valueName, a, err)
		}
		values[i] = v
	}

	return values, nil
}

// newAPIClient connects to --server and warns when its version differs from
// this binary.
func newAPIClient() *client.Client {
	c := client.NewClient(serverAddr)

	if serverVersion, err := c.GetVersion(); err == nil {
		if serverVersion != version.Version {
			logrus.WithFields(logrus.Fields{
				"clientVersion": version.Version,
				"serverVersion": serverVersion,
			}).Warn("Version mismatch between client and server. rtdconv may not work as expected.")
		}
	} else if errors.Is(err, client.ErrNotFound) {
		logrus.Error("rtdconv server is too old to report its version.")
	}

	return c
}

func readPoints(path string, delim rune) ([]polyfit.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	points, err := dataset.Read(f, delim)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return points, nil
}

// defaultOutput returns path with its extension replaced by ext.
func defaultOutput(path, ext string) string {
	return path[:len(path)-len(filepath.Ext(path))] + ext
}

var errInvalidArgs = fmt.Errorf("invalid number of arguments")
