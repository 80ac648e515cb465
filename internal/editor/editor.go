// Package editor appends new links to the local registry file.
//
// An append is one linear sequence: validate, read the current text, append
// the new line, normalize, overwrite the file, then run the post-write
// effects in order. Effects are best-effort: every effect runs even when an
// earlier one fails, and nothing is rolled back.
package editor

import (
	"context"

	"github.com/gubarz/shortlinks/internal/errors"
	"github.com/gubarz/shortlinks/internal/logging"
	"github.com/gubarz/shortlinks/internal/registry"
)

// NewLink is a user-submitted (path, URL) pair.
type NewLink struct {
	Path string
	URL  string
}

// Store is the backing registry text.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, text string) error
}

// Result describes a completed append.
type Result struct {
	Text         string  // normalized file content that was written
	ShortURL     string  // public URL of the new link
	EffectErrors []error // failures of post-write effects, in run order
}

// Editor appends links to a Store and fires post-write effects.
type Editor struct {
	store    Store
	effects  []Effect
	shortURL func(path string) string
}

// New creates an Editor. shortURL maps a path to its public URL.
func New(store Store, shortURL func(path string) string, effects ...Effect) *Editor {
	return &Editor{
		store:    store,
		effects:  effects,
		shortURL: shortURL,
	}
}

// Validate checks both fields of link. The returned error carries
// ErrInvalidLink or ErrInvalidURL.
func Validate(link NewLink) error {
	if !registry.IsValidLink(link.Path) {
		return errors.Newf(errors.ErrInvalidLink, "invalid link %q", link.Path)
	}
	if !registry.IsValidURL(link.URL) {
		return errors.Newf(errors.ErrInvalidURL, "invalid URL %q", link.URL)
	}
	return nil
}

// Append adds link to the registry. The file is left untouched when
// validation, the duplicate check, or reading fails. Effect failures do not
// fail the append; they are reported in Result.EffectErrors.
func (e *Editor) Append(ctx context.Context, link NewLink) (*Result, error) {
	logger := logging.GetLogger("editor")
	done := logging.LogOperationStart(logger, "append")
	defer done()

	if err := Validate(link); err != nil {
		return nil, err
	}

	current, err := e.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if url, exists := registry.NewLookup(current).Resolve(link.Path); exists {
		return nil, errors.Newf(errors.ErrAlreadyExists, "link %s already points to %s", link.Path, url).
			WithDetail("path", link.Path)
	}

	text := registry.AppendEntry(current, registry.Entry{Path: link.Path, URL: link.URL})
	if err := e.store.Save(ctx, text); err != nil {
		return nil, err
	}
	logger.Info().Str("path", link.Path).Str("url", link.URL).Msg("Link added")

	res := &Result{Text: text, ShortURL: e.shortURL(link.Path)}
	for _, effect := range e.effects {
		if err := effect.Run(ctx, link, res.ShortURL); err != nil {
			logger.Warn().Err(err).Str("effect", effect.Name).Msg("Post-write effect failed")
			res.EffectErrors = append(res.EffectErrors,
				errors.Wrapf(err, errors.ErrEffect, "%s", effect.Name).WithDetail("effect", effect.Name))
			continue
		}
		logger.Debug().Str("effect", effect.Name).Msg("Post-write effect done")
	}
	return res, nil
}

// Effects returns the names of the configured effects in run order.
func (e *Editor) Effects() []string {
	names := make([]string, len(e.effects))
	for i, effect := range e.effects {
		names[i] = effect.Name
	}
	return names
}
