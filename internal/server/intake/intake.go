// Package intake turns the media parts of a multipart feedback form into
// stored media references.
package intake

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/dmitrijs2005/feedbackd/internal/common"
	"github.com/dmitrijs2005/feedbackd/internal/logging"
	"github.com/dmitrijs2005/feedbackd/internal/server/media"
)

// Media holds the references produced for one request. A nil field means
// the part was absent.
type Media struct {
	Video *string
	Audio *string
}

func (m *Media) refs() []string {
	var refs []string
	if m.Video != nil {
		refs = append(refs, *m.Video)
	}
	if m.Audio != nil {
		refs = append(refs, *m.Audio)
	}
	return refs
}

type Intake struct {
	store  media.Store
	logger logging.Logger
}

func New(store media.Store, logger logging.Logger) *Intake {
	return &Intake{store: store, logger: logger.With("module", "intake")}
}

// Store saves the first file of the video and audio parts. Payloads are not
// inspected. If the second part fails, the first one is removed again.
func (in *Intake) Store(ctx context.Context, form *multipart.Form) (*Media, error) {
	result := &Media{}
	if form == nil {
		return result, nil
	}

	for _, part := range []struct {
		name string
		dst  **string
	}{
		{common.MediaVideo, &result.Video},
		{common.MediaAudio, &result.Audio},
	} {
		files := form.File[part.name]
		if len(files) == 0 {
			continue
		}

		ref, err := in.save(ctx, files[0])
		if err != nil {
			in.Discard(ctx, result)
			return nil, fmt.Errorf("store %s: %w", part.name, err)
		}
		*part.dst = &ref
	}

	return result, nil
}

func (in *Intake) save(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	ref, err := in.store.Save(ctx, fh.Filename, f)
	if err != nil {
		return "", err
	}

	in.logger.Debug(ctx, "media stored", "ref", ref, "size", fh.Size)
	return ref, nil
}

// Discard removes media stored for a request whose processing failed.
// Failures are logged, not returned.
func (in *Intake) Discard(ctx context.Context, m *Media) {
	if m == nil {
		return
	}
	for _, ref := range m.refs() {
		if err := in.store.Remove(ctx, ref); err != nil {
			in.logger.Warn(ctx, "could not discard media", "ref", ref, "error", err)
		}
	}
}
