package analyzer

import "errors"

var ErrEmptyRun = errors.New("analyzer: collector has no recorded data")
