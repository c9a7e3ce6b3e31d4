// Package ingest adapts the object store into the refinery's raw source
package ingest

import (
	"context"
	"fmt"
	"io"
	"strings"

	perr "spinlog/internal/platform/errors"
	"spinlog/internal/platform/store"
	"spinlog/internal/services/refinery/domain"
)

// ObjectSource reads raw JSONL batch objects laid out by collection day:
//
//	<prefix>/year=YYYY/month=MM/day=DD/plays_<ts>.jsonl
type ObjectSource struct {
	objects store.Objects
	prefix  string
}

// NewObjectSource returns a source rooted at prefix on the object store
func NewObjectSource(objects store.Objects, prefix string) *ObjectSource {
	return &ObjectSource{objects: objects, prefix: strings.Trim(prefix, "/")}
}

// List resolves the raw object keys for every day in the window.
// A day with no objects contributes nothing; listing failure is
// run-level, since a partially read batch would dedupe incorrectly
func (s *ObjectSource) List(ctx context.Context, w domain.Window) ([]string, error) {
	if s.objects == nil {
		return nil, perr.Configf("raw source requires an object store")
	}
	var keys []string
	for _, day := range w.Days() {
		prefix := fmt.Sprintf("%s/year=%04d/month=%02d/day=%02d/",
			s.prefix, day.Year(), int(day.Month()), day.Day())
		infos, err := s.objects.List(ctx, prefix)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeSourceRead, "list raw objects under %s", prefix)
		}
		for _, info := range infos {
			if strings.HasSuffix(info.Key, ".jsonl") || strings.HasSuffix(info.Key, ".jsonl.gz") {
				keys = append(keys, info.Key)
			}
		}
	}
	return keys, nil
}

// Open returns a reader for one raw object
func (s *ObjectSource) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := s.objects.Open(ctx, key)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeSourceRead, "open raw object %s", key)
	}
	return rc, nil
}
